package reconcile

import (
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/time/rate"

	"driftguard/server/internal/clock"
	"driftguard/server/internal/items"
	"driftguard/server/internal/telemetry"
	"driftguard/server/logging"
	logreconcile "driftguard/server/logging/reconcile"
)

// Authority is the narrow capability surface of the host-side authoritative
// inventory. Implementations translate engine slot indices to the host's
// native indexing and expose the host's current view of each slot.
type Authority interface {
	// TranslateSlot maps an engine slot index to the host's native index.
	// The second return is false for slots the host does not expose.
	TranslateSlot(slot int) (int, bool)
	// ReadItem returns the host's current item at a native index.
	ReadItem(externalIndex int) items.ItemStack
	// RequestViewRefresh asks the host to rebuild its cached client view.
	// Fire-and-forget; the engine never waits on it.
	RequestViewRefresh()
	// TrackingEnabled reports whether the host inventory is currently
	// mirrored by this engine.
	TrackingEnabled() bool
}

// Verifier compares engine-side slot values against the authority and
// forces a resync on mismatch. All failure modes (no authority bound,
// tracking disabled, translation miss) degrade to a skipped check.
type Verifier struct {
	store *CorrectingStorage
	ticks clock.TickSource

	mu        sync.RWMutex
	authority Authority

	// refreshLimiter throttles the outward view-refresh delegation; host
	// view rebuilds are not free and a burst of mismatches must not turn
	// into a burst of rebuild requests. The overwrite itself is never
	// throttled.
	refreshLimiter *rate.Limiter

	desynced  mapset.Set[int]
	metrics   telemetry.Metrics
	publisher logging.Publisher
	actor     logging.EntityRef
}

// VerifierConfig wires a verifier to its store and collaborators.
type VerifierConfig struct {
	Store     *CorrectingStorage
	Ticks     clock.TickSource
	Authority Authority // optional; may be bound later
	// RefreshLimit caps outward view-refresh requests per second. Zero
	// means one per second with a small burst.
	RefreshLimit rate.Limit
	RefreshBurst int
	Metrics      telemetry.Metrics
	Publisher    logging.Publisher
	Actor        logging.EntityRef
}

// NewVerifier constructs a verifier. Store and Ticks must be set.
func NewVerifier(cfg VerifierConfig) *Verifier {
	limit := cfg.RefreshLimit
	if limit == 0 {
		limit = rate.Limit(1)
	}
	burst := cfg.RefreshBurst
	if burst <= 0 {
		burst = 3
	}
	return &Verifier{
		store:          cfg.Store,
		ticks:          cfg.Ticks,
		authority:      cfg.Authority,
		refreshLimiter: rate.NewLimiter(limit, burst),
		desynced:       mapset.NewSet[int](),
		metrics:        cfg.Metrics,
		publisher:      cfg.Publisher,
		actor:          cfg.Actor,
	}
}

// BindAuthority attaches (or replaces) the authoritative inventory binding.
func (v *Verifier) BindAuthority(authority Authority) {
	v.mu.Lock()
	v.authority = authority
	v.mu.Unlock()
}

func (v *Verifier) boundAuthority() Authority {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.authority
}

// CheckSync compares one slot against the authority. On mismatch the host
// is asked to refresh its cached view and the engine slot is overwritten
// with the authoritative value; the overwrite re-enters admission and is
// tracked like any other write.
func (v *Verifier) CheckSync(slot int) {
	authority := v.boundAuthority()
	if authority == nil || !authority.TrackingEnabled() {
		return
	}
	external, ok := authority.TranslateSlot(slot)
	if !ok {
		return
	}

	authoritative := authority.ReadItem(external)
	current := v.store.Get(slot)
	if items.StacksEqual(current, authoritative) {
		v.desynced.Remove(slot)
		return
	}

	v.desynced.Add(slot)
	if v.refreshLimiter.Allow() {
		authority.RequestViewRefresh()
	} else if v.metrics != nil {
		v.metrics.Add(MetricRefreshesThrottled, 1)
	}
	v.store.Set(slot, authoritative)

	if v.metrics != nil {
		v.metrics.Add(MetricForcedResyncs, 1)
	}
	if v.publisher != nil {
		logreconcile.SlotResynced(context.Background(), v.publisher, v.ticks.CurrentTick(), v.actor, logreconcile.ResyncPayload{
			Slot:          slot,
			EngineType:    current.Type,
			EngineQty:     current.Quantity,
			AuthorityType: authoritative.Type,
			AuthorityQty:  authoritative.Quantity,
		})
	}
}

// DesyncedSlots snapshots the slots whose last comparison failed.
func (v *Verifier) DesyncedSlots() []int {
	return v.desynced.ToSlice()
}
