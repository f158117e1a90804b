package clock

import (
	"sync"
	"testing"
)

func TestTickerAdvances(t *testing.T) {
	var ticker Ticker
	if got := ticker.CurrentTick(); got != 0 {
		t.Fatalf("expected zero value to start at tick 0, got %d", got)
	}
	ticker.Advance()
	ticker.Advance()
	if got := ticker.CurrentTick(); got != 2 {
		t.Fatalf("expected tick 2 after two advances, got %d", got)
	}
}

func TestTickerConcurrentReads(t *testing.T) {
	var ticker Ticker
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ticker.CurrentTick()
			}
		}()
	}
	for i := 0; i < 100; i++ {
		ticker.Advance()
	}
	wg.Wait()
	if got := ticker.CurrentTick(); got != 100 {
		t.Fatalf("expected tick 100, got %d", got)
	}
}

func TestTickFunc(t *testing.T) {
	source := TickFunc(func() uint64 { return 7 })
	if got := source.CurrentTick(); got != 7 {
		t.Fatalf("expected tick 7, got %d", got)
	}
	var nilFunc TickFunc
	if got := nilFunc.CurrentTick(); got != 0 {
		t.Fatalf("expected nil func to report tick 0, got %d", got)
	}
}
