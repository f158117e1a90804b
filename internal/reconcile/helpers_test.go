package reconcile

import (
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"driftguard/server/internal/items"
	"driftguard/server/logging"
)

func actorRef() logging.EntityRef {
	return logging.EntityRef{ID: "test-session", Kind: logging.EntityKindSession}
}

// stubTicks is a hand-driven tick source, safe for concurrent reads while a
// test advances it.
type stubTicks struct {
	tick atomic.Uint64
}

func (s *stubTicks) CurrentTick() uint64 {
	return s.tick.Load()
}

func (s *stubTicks) set(tick uint64) {
	s.tick.Store(tick)
}

// stubTransactions exposes directly settable session counters.
type stubTransactions struct {
	sent     int64
	received int64
}

func (s *stubTransactions) LastTransactionSent() int64 {
	return s.sent
}

func (s *stubTransactions) LastTransactionReceived() int64 {
	return s.received
}

// stubAuthority is an in-memory authoritative inventory with call counters.
type stubAuthority struct {
	mu        sync.Mutex
	items     map[int]items.ItemStack
	tracking  bool
	translate func(int) (int, bool)
	reads     map[int]int
	refreshes int
}

func newStubAuthority() *stubAuthority {
	return &stubAuthority{
		items:    make(map[int]items.ItemStack),
		tracking: true,
		reads:    make(map[int]int),
	}
}

func (a *stubAuthority) TranslateSlot(slot int) (int, bool) {
	if a.translate != nil {
		return a.translate(slot)
	}
	return slot, true
}

func (a *stubAuthority) ReadItem(externalIndex int) items.ItemStack {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reads[externalIndex]++
	return a.items[externalIndex]
}

func (a *stubAuthority) RequestViewRefresh() {
	a.mu.Lock()
	a.refreshes++
	a.mu.Unlock()
}

func (a *stubAuthority) TrackingEnabled() bool {
	return a.tracking
}

func (a *stubAuthority) setItem(externalIndex int, item items.ItemStack) {
	a.mu.Lock()
	a.items[externalIndex] = item
	a.mu.Unlock()
}

func (a *stubAuthority) readCount(externalIndex int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reads[externalIndex]
}

func (a *stubAuthority) refreshCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshes
}

// countingMetrics records telemetry counters for assertions.
type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]uint64)}
}

func (m *countingMetrics) Add(key string, delta uint64) {
	m.mu.Lock()
	m.counts[key] += delta
	m.mu.Unlock()
}

func (m *countingMetrics) Store(key string, value uint64) {
	m.mu.Lock()
	m.counts[key] = value
	m.mu.Unlock()
}

func (m *countingMetrics) value(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

type testRig struct {
	reconciler   *Reconciler
	ticks        *stubTicks
	transactions *stubTransactions
	authority    *stubAuthority
	metrics      *countingMetrics
}

func newTestRig(size int, authority *stubAuthority) *testRig {
	ticks := &stubTicks{}
	transactions := &stubTransactions{}
	metrics := newCountingMetrics()
	cfg := Config{
		InventorySize: size,
		TrackableEnd:  size - 1,
		Ticks:         ticks,
		Transactions:  transactions,
		Metrics:       metrics,
		RefreshLimit:  rate.Inf,
	}
	if authority != nil {
		cfg.Authority = authority
	}
	return &testRig{
		reconciler:   New(cfg),
		ticks:        ticks,
		transactions: transactions,
		authority:    authority,
		metrics:      metrics,
	}
}

// advanceTick moves the clock forward one tick and runs the driver, the way
// the simulation loop does.
func (r *testRig) advanceTick() {
	r.ticks.tick.Add(1)
	r.reconciler.OnTick()
}
