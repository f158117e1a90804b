// Package sim owns the session registry and the fixed-timestep loop that
// drives every session's reconciler once per tick.
package sim

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"driftguard/server/internal/clock"
	"driftguard/server/internal/reconcile"
	"driftguard/server/internal/session"
	"driftguard/server/internal/telemetry"
	"driftguard/server/logging"
)

// Config tunes the hub and the per-session reconcilers it creates.
type Config struct {
	TickRate            int
	InventorySize       int
	TrackableEnd        int
	VerificationHorizon uint64
	Logger              telemetry.Logger
	Metrics             telemetry.Metrics
	Publisher           logging.Publisher
}

// DefaultConfig mirrors a vanilla player inventory: 46 slots with the final
// off-hand slot outside the trackable range.
func DefaultConfig() Config {
	return Config{
		TickRate:            20,
		InventorySize:       46,
		TrackableEnd:        44,
		VerificationHorizon: reconcile.DefaultVerificationHorizon,
	}
}

// Runtime pairs one session's transaction counters with its reconciler.
type Runtime struct {
	Session    *session.Session
	Reconciler *reconcile.Reconciler
}

// Hub tracks live sessions and advances the shared tick clock.
type Hub struct {
	mu       sync.Mutex
	runtimes map[uuid.UUID]*Runtime

	ticks     *clock.Ticker
	cfg       Config
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
}

// NewHub constructs an empty hub.
func NewHub(cfg Config) *Hub {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultConfig().TickRate
	}
	if cfg.InventorySize <= 0 {
		cfg.InventorySize = DefaultConfig().InventorySize
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Hub{
		runtimes:  make(map[uuid.UUID]*Runtime),
		ticks:     &clock.Ticker{},
		cfg:       cfg,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		publisher: publisher,
	}
}

// Ticks exposes the hub's tick clock.
func (h *Hub) Ticks() clock.TickSource {
	return h.ticks
}

// Attach creates a session and its reconciler. Ledger state lives exactly as
// long as the session.
func (h *Hub) Attach() *Runtime {
	sess := session.New()
	actor := logging.EntityRef{ID: sess.ID().String(), Kind: logging.EntityKindSession}
	rec := reconcile.New(reconcile.Config{
		InventorySize:       h.cfg.InventorySize,
		TrackableEnd:        h.cfg.TrackableEnd,
		VerificationHorizon: h.cfg.VerificationHorizon,
		Ticks:               h.ticks,
		Transactions:        sess,
		Metrics:             h.metrics,
		Publisher:           h.publisher,
		Actor:               actor,
	})
	runtime := &Runtime{Session: sess, Reconciler: rec}

	h.mu.Lock()
	h.runtimes[sess.ID()] = runtime
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Printf("session %s attached", sess.ID())
	}
	return runtime
}

// Detach discards a session and its ledger state.
func (h *Hub) Detach(id uuid.UUID) {
	h.mu.Lock()
	_, ok := h.runtimes[id]
	delete(h.runtimes, id)
	h.mu.Unlock()

	if ok && h.logger != nil {
		h.logger.Printf("session %s detached", id)
	}
}

// Runtime looks up a live session.
func (h *Hub) Runtime(id uuid.UUID) (*Runtime, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	runtime, ok := h.runtimes[id]
	return runtime, ok
}

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runtimes)
}

// Step advances the tick clock once and runs every session's tick driver.
// It is the loop body of RunLoop and may be called directly by alternate
// schedulers and tests.
func (h *Hub) Step() {
	h.ticks.Advance()

	h.mu.Lock()
	runtimes := make([]*Runtime, 0, len(h.runtimes))
	for _, runtime := range h.runtimes {
		runtimes = append(runtimes, runtime)
	}
	h.mu.Unlock()

	for _, runtime := range runtimes {
		runtime.Reconciler.OnTick()
	}
	if h.metrics != nil {
		h.metrics.Store("sim_current_tick", h.ticks.CurrentTick())
	}
}

// RunLoop drives Step at the configured tick rate until stop closes.
func (h *Hub) RunLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(h.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.Step()
		}
	}
}

// RuntimeDiagnostics is one session's entry in the diagnostics snapshot.
type RuntimeDiagnostics struct {
	SessionID string                `json:"sessionId"`
	Sent      int64                 `json:"lastTransactionSent"`
	Received  int64                 `json:"lastTransactionReceived"`
	Reconcile reconcile.Diagnostics `json:"reconcile"`
}

// DiagnosticsSnapshot reports per-session reconciliation state.
func (h *Hub) DiagnosticsSnapshot() []RuntimeDiagnostics {
	h.mu.Lock()
	runtimes := make([]*Runtime, 0, len(h.runtimes))
	for _, runtime := range h.runtimes {
		runtimes = append(runtimes, runtime)
	}
	h.mu.Unlock()

	entries := make([]RuntimeDiagnostics, 0, len(runtimes))
	for _, runtime := range runtimes {
		entries = append(entries, RuntimeDiagnostics{
			SessionID: runtime.Session.ID().String(),
			Sent:      runtime.Session.LastTransactionSent(),
			Received:  runtime.Session.LastTransactionReceived(),
			Reconcile: runtime.Reconciler.DiagnosticsSnapshot(),
		})
	}
	return entries
}

// TickRate returns the configured simulation rate in ticks per second.
func (h *Hub) TickRate() int {
	return h.cfg.TickRate
}
