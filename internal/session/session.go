// Package session tracks the per-connection transaction counters the
// reconciliation engine orders corrections against.
package session

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Session holds the two transaction counters for one client connection: the
// last transaction the server sent and the last one the client acknowledged.
// Both are monotonically non-decreasing; stale reports are ignored rather
// than rejected since packets may be processed out of order.
type Session struct {
	id       uuid.UUID
	sent     atomic.Int64
	received atomic.Int64
}

// New allocates a session with a fresh identity and zeroed counters.
func New() *Session {
	return &Session{id: uuid.New()}
}

// ID returns the session identity.
func (s *Session) ID() uuid.UUID {
	if s == nil {
		return uuid.Nil
	}
	return s.id
}

// LastTransactionSent returns the latest transaction number the server is
// known to be processing for this session.
func (s *Session) LastTransactionSent() int64 {
	if s == nil {
		return 0
	}
	return s.sent.Load()
}

// LastTransactionReceived returns the latest transaction number the client
// has acknowledged.
func (s *Session) LastTransactionReceived() int64 {
	if s == nil {
		return 0
	}
	return s.received.Load()
}

// RecordTransactionSent advances the outbound counter. Returns false if the
// reported id was older than the stored one.
func (s *Session) RecordTransactionSent(id int64) bool {
	if s == nil {
		return false
	}
	return advance(&s.sent, id)
}

// RecordTransactionReceived advances the acknowledgement counter. Returns
// false if the reported id was older than the stored one.
func (s *Session) RecordTransactionReceived(id int64) bool {
	if s == nil {
		return false
	}
	return advance(&s.received, id)
}

func advance(counter *atomic.Int64, id int64) bool {
	for {
		current := counter.Load()
		if id < current {
			return false
		}
		if counter.CompareAndSwap(current, id) {
			return true
		}
	}
}
