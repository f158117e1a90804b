package reconcile

import (
	"testing"
	"time"

	"golang.org/x/time/rate"

	"driftguard/server/internal/items"
)

func TestCheckSyncWithoutAuthorityIsNoop(t *testing.T) {
	rig := newTestRig(10, nil)
	rig.reconciler.SetItem(1, items.ItemStack{Type: "stone", Quantity: 1})

	rig.reconciler.CheckSync(1)

	if got := rig.reconciler.Item(1).Type; got != "stone" {
		t.Fatalf("expected slot untouched without authority, got %q", got)
	}
}

func TestCheckSyncTrackingDisabledIsNoop(t *testing.T) {
	authority := newStubAuthority()
	authority.tracking = false
	authority.setItem(1, items.ItemStack{Type: "gold", Quantity: 5})
	rig := newTestRig(10, authority)

	rig.reconciler.CheckSync(1)

	if got := authority.readCount(1); got != 0 {
		t.Fatalf("expected no authority reads while tracking disabled, got %d", got)
	}
}

func TestCheckSyncTranslationMissSkipsSlot(t *testing.T) {
	authority := newStubAuthority()
	authority.translate = func(slot int) (int, bool) {
		return 0, false
	}
	rig := newTestRig(10, authority)

	rig.reconciler.CheckSync(3)

	if got := authority.readCount(0); got != 0 {
		t.Fatalf("expected translation miss to skip the read, got %d", got)
	}
}

func TestMismatchForcesResync(t *testing.T) {
	authority := newStubAuthority()
	// Engine slot 8 maps to native index 39.
	authority.translate = func(slot int) (int, bool) {
		if slot == 8 {
			return 39, true
		}
		return slot, true
	}
	authority.setItem(39, items.ItemStack{Type: "iron", Quantity: 7})
	rig := newTestRig(45, authority)
	rig.ticks.set(30)

	rig.reconciler.CheckSync(8)

	if got := authority.refreshCount(); got != 1 {
		t.Fatalf("expected exactly one view refresh request, got %d", got)
	}
	if got := rig.reconciler.Item(8); !items.StacksEqual(got, items.ItemStack{Type: "iron", Quantity: 7}) {
		t.Fatalf("expected slot overwritten with authoritative value, got %+v", got)
	}
	// The forced resync is a write like any other: it must schedule a fresh
	// verification, not a correction marker.
	deadline, ok := rig.reconciler.ledger.PendingVerification(8)
	if !ok {
		t.Fatalf("expected forced resync to schedule verification")
	}
	if deadline != 35 {
		t.Fatalf("expected deadline 35, got %d", deadline)
	}
	if _, ok := rig.reconciler.ledger.PendingCorrection(8); ok {
		t.Fatalf("expected no correction marker after forced resync")
	}
	if got := rig.metrics.value(MetricForcedResyncs); got != 1 {
		t.Fatalf("expected 1 forced resync counted, got %d", got)
	}
}

func TestCheckSyncIsIdempotent(t *testing.T) {
	authority := newStubAuthority()
	authority.setItem(2, items.ItemStack{Type: "wheat", Quantity: 3})
	rig := newTestRig(10, authority)

	rig.reconciler.CheckSync(2)
	rig.reconciler.CheckSync(2)

	if got := authority.refreshCount(); got != 1 {
		t.Fatalf("expected a single refresh across repeated checks, got %d", got)
	}
	if got := rig.metrics.value(MetricForcedResyncs); got != 1 {
		t.Fatalf("expected a single forced resync across repeated checks, got %d", got)
	}
}

func TestQuantityMismatchTriggersResync(t *testing.T) {
	authority := newStubAuthority()
	authority.setItem(4, items.ItemStack{Type: "arrow", Quantity: 64})
	rig := newTestRig(10, authority)
	rig.reconciler.SetItem(4, items.ItemStack{Type: "arrow", Quantity: 63})

	rig.reconciler.CheckSync(4)

	if got := rig.reconciler.Item(4).Quantity; got != 64 {
		t.Fatalf("expected quantity resynced to 64, got %d", got)
	}
}

func TestViewRefreshIsThrottled(t *testing.T) {
	authority := newStubAuthority()
	authority.setItem(0, items.ItemStack{Type: "a", Quantity: 1})
	authority.setItem(1, items.ItemStack{Type: "b", Quantity: 1})
	metrics := newCountingMetrics()
	ticks := &stubTicks{}
	ledger := NewLedger(LedgerConfig{TrackableEnd: 9, Ticks: ticks, Transactions: &stubTransactions{}})
	store := NewCorrectingStorage(items.NewStorage(10), ledger, metrics, nil, actorRef())
	verifier := NewVerifier(VerifierConfig{
		Store:        store,
		Ticks:        ticks,
		Authority:    authority,
		RefreshLimit: rate.Every(time.Hour),
		RefreshBurst: 1,
		Metrics:      metrics,
	})

	verifier.CheckSync(0)
	verifier.CheckSync(1)

	if got := authority.refreshCount(); got != 1 {
		t.Fatalf("expected throttle to allow one refresh, got %d", got)
	}
	if got := metrics.value(MetricRefreshesThrottled); got != 1 {
		t.Fatalf("expected 1 throttled refresh counted, got %d", got)
	}
	// The overwrite itself must not be throttled.
	if got := store.Get(1).Type; got != "b" {
		t.Fatalf("expected throttled slot still resynced, got %q", got)
	}
}

func TestDesyncedSlotsRecover(t *testing.T) {
	authority := newStubAuthority()
	authority.setItem(6, items.ItemStack{Type: "bone", Quantity: 2})
	rig := newTestRig(10, authority)

	rig.reconciler.CheckSync(6)
	if got := rig.reconciler.DiagnosticsSnapshot().DesyncedSlots; len(got) != 1 || got[0] != 6 {
		t.Fatalf("expected slot 6 in desynced set, got %v", got)
	}

	rig.reconciler.CheckSync(6)
	if got := rig.reconciler.DiagnosticsSnapshot().DesyncedSlots; len(got) != 0 {
		t.Fatalf("expected desynced set cleared after matching check, got %v", got)
	}
}
