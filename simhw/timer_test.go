package simhw

import (
	"sync/atomic"
	"testing"
	"time"
)

type fakeSched struct {
	ticks atomic.Int64
}

func (f *fakeSched) Tick() error {
	f.ticks.Add(1)
	return nil
}

func TestTimerTicksSchedule(t *testing.T) {
	fs := &fakeSched{}
	tm := NewTimer(fs)
	tm.Init(1000) // small reload -> fast ticks for the test
	defer tm.Stop()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if fs.ticks.Load() > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if fs.ticks.Load() == 0 {
		t.Fatal("timer never called Tick")
	}
}

func TestTimerAckAndSetNext(t *testing.T) {
	fs := &fakeSched{}
	tm := NewTimer(fs)
	tm.Init(500)
	defer tm.Stop()

	tm.AckAndSetNext(750)
	if got := tm.TickCycles(); got != 750 {
		t.Errorf("TickCycles() = %d, want 750", got)
	}
}
