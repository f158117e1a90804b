package reconcile

import (
	"context"

	"golang.org/x/time/rate"

	"driftguard/server/internal/clock"
	"driftguard/server/internal/items"
	"driftguard/server/internal/telemetry"
	"driftguard/server/logging"
	logreconcile "driftguard/server/logging/reconcile"
)

// Config carries everything a session's reconciler needs. InventorySize,
// Ticks, and Transactions must be set; the rest have working defaults.
type Config struct {
	InventorySize int
	// TrackableEnd is the last slot index claims and corrections apply to.
	// Zero means the whole inventory minus the final (cursor/off-hand) slot.
	TrackableEnd        int
	VerificationHorizon uint64
	Ticks               clock.TickSource
	Transactions        TransactionSource
	Authority           Authority
	RefreshLimit        rate.Limit
	RefreshBurst        int
	Metrics             telemetry.Metrics
	Publisher           logging.Publisher
	Actor               logging.EntityRef
}

// Reconciler ties the ledger, correcting store, verifier, and tick driver
// together for a single session. Packet handlers call SetItem,
// RecordServerCorrection, and RecordClientClaim from the network context;
// the simulation loop calls OnTick once per tick.
type Reconciler struct {
	ledger    *Ledger
	store     *CorrectingStorage
	verifier  *Verifier
	ticks     clock.TickSource
	metrics   telemetry.Metrics
	publisher logging.Publisher
	actor     logging.EntityRef
}

// New constructs a reconciler over a fresh empty inventory store.
func New(cfg Config) *Reconciler {
	trackableEnd := cfg.TrackableEnd
	if trackableEnd <= 0 {
		trackableEnd = cfg.InventorySize - 2
	}
	ledger := NewLedger(LedgerConfig{
		TrackableEnd:        trackableEnd,
		VerificationHorizon: cfg.VerificationHorizon,
		Ticks:               cfg.Ticks,
		Transactions:        cfg.Transactions,
	})
	base := items.NewStorage(cfg.InventorySize)
	store := NewCorrectingStorage(base, ledger, cfg.Metrics, cfg.Publisher, cfg.Actor)
	verifier := NewVerifier(VerifierConfig{
		Store:        store,
		Ticks:        cfg.Ticks,
		Authority:    cfg.Authority,
		RefreshLimit: cfg.RefreshLimit,
		RefreshBurst: cfg.RefreshBurst,
		Metrics:      cfg.Metrics,
		Publisher:    cfg.Publisher,
		Actor:        cfg.Actor,
	})
	return &Reconciler{
		ledger:    ledger,
		store:     store,
		verifier:  verifier,
		ticks:     cfg.Ticks,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
		actor:     cfg.Actor,
	}
}

// SetItem applies a predicted or corrected write through admission.
func (r *Reconciler) SetItem(slot int, item items.ItemStack) {
	r.store.Set(slot, item)
}

// Item returns the engine-side value for slot.
func (r *Reconciler) Item(slot int) items.ItemStack {
	return r.store.Get(slot)
}

// Size returns the inventory slot count.
func (r *Reconciler) Size() int {
	return r.store.Size()
}

// RecordServerCorrection notes that the host issued a correction for slot.
func (r *Reconciler) RecordServerCorrection(slot int) {
	if !r.ledger.RecordServerCorrection(slot) {
		return
	}
	if r.metrics != nil {
		r.metrics.Add(MetricCorrectionsRecorded, 1)
	}
	if r.publisher != nil {
		transaction, _ := r.ledger.PendingCorrection(slot)
		logreconcile.CorrectionRecorded(context.Background(), r.publisher, r.ticks.CurrentTick(), r.actor, logreconcile.CorrectionPayload{
			Slot:        slot,
			Transaction: transaction,
		})
	}
}

// RecordClientClaim notes that the client protocol declared ownership of slot.
func (r *Reconciler) RecordClientClaim(slot int) {
	r.ledger.RecordClientClaim(slot)
}

// BindAuthority attaches the host-side authoritative inventory.
func (r *Reconciler) BindAuthority(authority Authority) {
	r.verifier.BindAuthority(authority)
}

// CheckSync verifies a single slot against the authority on demand.
func (r *Reconciler) CheckSync(slot int) {
	r.verifier.CheckSync(slot)
}

// Diagnostics is a point-in-time view of a reconciler's pending state.
type Diagnostics struct {
	PendingVerifications int   `json:"pendingVerifications"`
	PendingCorrections   int   `json:"pendingCorrections"`
	DesyncedSlots        []int `json:"desyncedSlots"`
}

// DiagnosticsSnapshot reports pending counters and the desynced slot set.
func (r *Reconciler) DiagnosticsSnapshot() Diagnostics {
	verifications, corrections := r.ledger.PendingCounts()
	return Diagnostics{
		PendingVerifications: verifications,
		PendingCorrections:   corrections,
		DesyncedSlots:        r.verifier.DesyncedSlots(),
	}
}
