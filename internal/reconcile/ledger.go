// Package reconcile keeps a session's predicted inventory consistent with
// the authoritative inventory held by the host server. Writes are admitted
// optimistically; each slot carries at most one piece of reconciliation
// state deciding whether the latest write is final (re-verified after a
// fixed tick horizon) or still governed by an in-flight server correction.
package reconcile

import (
	"sync"

	"driftguard/server/internal/clock"
)

// DefaultVerificationHorizon is how many ticks a finalized prediction may
// remain unverified before it is checked against the authoritative value.
const DefaultVerificationHorizon = 5

// TransactionSource exposes a session's transaction counters. Both values
// are monotonically non-decreasing and safe to read from any goroutine.
type TransactionSource interface {
	LastTransactionSent() int64
	LastTransactionReceived() int64
}

// Decision is the ledger's admission outcome for a slot write.
type Decision int

const (
	// DecisionFinalize marks the write as the last change for the slot and
	// schedules a ground-truth verification.
	DecisionFinalize Decision = iota
	// DecisionDefer means an unacknowledged server correction still governs
	// the slot; the write is applied but no verification is scheduled.
	DecisionDefer
)

type slotStatus uint8

const (
	slotClean slotStatus = iota
	slotPendingCorrection
	slotPendingVerification
)

// slotState is a tagged variant: a slot is governed by exactly one of the
// two pending states at a time, never both.
type slotState struct {
	status      slotStatus
	transaction int64  // valid when status == slotPendingCorrection
	deadline    uint64 // valid when status == slotPendingVerification
}

// Ledger records per-slot reconciliation state for one session. It is safe
// for concurrent use from the packet-handling and tick contexts.
type Ledger struct {
	mu    sync.RWMutex
	slots map[int]slotState

	trackableEnd int
	horizon      uint64
	ticks        clock.TickSource
	transactions TransactionSource
}

// LedgerConfig carries the fixed parameters and injected clocks for a ledger.
type LedgerConfig struct {
	// TrackableEnd is the last slot index claims and corrections apply to.
	// Indices past it (cursor, off-hand) are silently ignored.
	TrackableEnd int
	// VerificationHorizon is the tick delay before a finalized write is
	// verified. Zero means DefaultVerificationHorizon.
	VerificationHorizon uint64
	Ticks               clock.TickSource
	Transactions        TransactionSource
}

// NewLedger constructs an empty ledger. Ticks and Transactions must be set.
func NewLedger(cfg LedgerConfig) *Ledger {
	horizon := cfg.VerificationHorizon
	if horizon == 0 {
		horizon = DefaultVerificationHorizon
	}
	return &Ledger{
		slots:        make(map[int]slotState),
		trackableEnd: cfg.TrackableEnd,
		horizon:      horizon,
		ticks:        cfg.Ticks,
		transactions: cfg.Transactions,
	}
}

// Admit records the reconciliation outcome for a write to slot. A slot with
// an unacknowledged server correction stays deferred; otherwise the write is
// the last change for the slot and a verification deadline is scheduled.
func (l *Ledger) Admit(slot int) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.slots[slot]
	if ok && state.status == slotPendingCorrection &&
		l.transactions.LastTransactionReceived() < state.transaction {
		return DecisionDefer
	}
	l.slots[slot] = slotState{
		status:   slotPendingVerification,
		deadline: l.ticks.CurrentTick() + l.horizon,
	}
	return DecisionFinalize
}

// RecordServerCorrection marks slot as mid-correction at the server's
// current outbound transaction. Local writes to the slot are deferred until
// the client acknowledges that transaction. Out-of-range slots are ignored
// and reported as not recorded.
func (l *Ledger) RecordServerCorrection(slot int) bool {
	if slot < 0 || slot > l.trackableEnd {
		return false
	}
	transaction := l.transactions.LastTransactionSent()
	l.mu.Lock()
	l.slots[slot] = slotState{status: slotPendingCorrection, transaction: transaction}
	l.mu.Unlock()
	return true
}

// RecordClientClaim schedules a verification for a slot the client protocol
// explicitly declared ownership of. Out-of-range slots are ignored and
// reported as not recorded.
func (l *Ledger) RecordClientClaim(slot int) bool {
	if slot < 0 || slot > l.trackableEnd {
		return false
	}
	deadline := l.ticks.CurrentTick() + l.horizon
	l.mu.Lock()
	l.slots[slot] = slotState{status: slotPendingVerification, deadline: deadline}
	l.mu.Unlock()
	return true
}

// PendingVerification reports the verification deadline for slot, if any.
func (l *Ledger) PendingVerification(slot int) (uint64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	state, ok := l.slots[slot]
	if !ok || state.status != slotPendingVerification {
		return 0, false
	}
	return state.deadline, true
}

// PendingCorrection reports the governing correction transaction for slot,
// if any.
func (l *Ledger) PendingCorrection(slot int) (int64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	state, ok := l.slots[slot]
	if !ok || state.status != slotPendingCorrection {
		return 0, false
	}
	return state.transaction, true
}

// IsClean reports whether slot has no pending reconciliation state.
func (l *Ledger) IsClean(slot int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.slots[slot]
	return !ok
}

// PendingCounts returns how many slots are awaiting verification and how
// many are mid-correction.
func (l *Ledger) PendingCounts() (verifications, corrections int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, state := range l.slots {
		switch state.status {
		case slotPendingVerification:
			verifications++
		case slotPendingCorrection:
			corrections++
		}
	}
	return verifications, corrections
}

// dueEntry snapshots one verification entry whose deadline has passed.
type dueEntry struct {
	slot     int
	deadline uint64
}

// dueVerifications snapshots all entries due at tick. The snapshot lets the
// driver iterate while packet handlers keep inserting concurrently.
func (l *Ledger) dueVerifications(tick uint64) []dueEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var due []dueEntry
	for slot, state := range l.slots {
		if state.status == slotPendingVerification && state.deadline <= tick {
			due = append(due, dueEntry{slot: slot, deadline: state.deadline})
		}
	}
	return due
}

// expire removes the verification entry for slot, but only if it still
// carries the snapshotted deadline. A concurrent write (including the forced
// resync the verification itself may have triggered) refreshes the deadline,
// and the refreshed entry must survive to its own expiry.
func (l *Ledger) expire(entry dueEntry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.slots[entry.slot]
	if !ok || state.status != slotPendingVerification || state.deadline != entry.deadline {
		return false
	}
	delete(l.slots, entry.slot)
	return true
}
