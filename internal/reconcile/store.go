package reconcile

import (
	"context"

	"driftguard/server/internal/items"
	"driftguard/server/internal/telemetry"
	"driftguard/server/logging"
	logreconcile "driftguard/server/logging/reconcile"
)

// Metric keys reported by the engine.
const (
	MetricWritesFinalized     = "reconcile_writes_finalized"
	MetricWritesDeferred      = "reconcile_writes_deferred"
	MetricVerificationsDue    = "reconcile_verifications_due"
	MetricAuditChecks         = "reconcile_audit_checks"
	MetricForcedResyncs       = "reconcile_forced_resyncs"
	MetricRefreshesThrottled  = "reconcile_refreshes_throttled"
	MetricCorrectionsRecorded = "reconcile_corrections_recorded"
)

// CorrectingStorage wraps a base slot store so every write passes through
// the ledger's admission decision first. The ledger is always updated before
// the base store so a concurrent verification never observes a finalized
// entry whose value has not landed yet.
type CorrectingStorage struct {
	base      *items.Storage
	ledger    *Ledger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	actor     logging.EntityRef
}

// NewCorrectingStorage wires a base store to a ledger. Metrics and publisher
// may be nil.
func NewCorrectingStorage(base *items.Storage, ledger *Ledger, metrics telemetry.Metrics, publisher logging.Publisher, actor logging.EntityRef) *CorrectingStorage {
	return &CorrectingStorage{
		base:      base,
		ledger:    ledger,
		metrics:   metrics,
		publisher: publisher,
		actor:     actor,
	}
}

// Set applies a write after recording the ledger decision. Deferred writes
// still land in the base store; the outstanding correction governs the
// slot's eventual truth.
func (s *CorrectingStorage) Set(slot int, item items.ItemStack) {
	switch s.ledger.Admit(slot) {
	case DecisionFinalize:
		s.count(MetricWritesFinalized)
	case DecisionDefer:
		s.count(MetricWritesDeferred)
		if s.publisher != nil {
			transaction, _ := s.ledger.PendingCorrection(slot)
			logreconcile.WriteDeferred(context.Background(), s.publisher, s.ledger.ticks.CurrentTick(), s.actor, logreconcile.DeferPayload{
				Slot:        slot,
				Transaction: transaction,
				Received:    s.ledger.transactions.LastTransactionReceived(),
			})
		}
	}
	s.base.Set(slot, item)
}

// Get reads the engine-side value for slot.
func (s *CorrectingStorage) Get(slot int) items.ItemStack {
	return s.base.Get(slot)
}

// Size returns the base store's slot count.
func (s *CorrectingStorage) Size() int {
	return s.base.Size()
}

func (s *CorrectingStorage) count(key string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Add(key, 1)
}
