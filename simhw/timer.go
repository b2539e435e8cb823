// Package simhw provides simulated peripherals -- a CLINT-like timer and a
// 16550-like UART -- that stand in for the memory-mapped devices the
// reference firmware drives directly (original_source's timer_clint.c and
// uart16550.c). Both run entirely in Go: there is no memory-mapped I/O to
// perform, so "programming the device" means starting or stopping a
// goroutine instead of writing to an MMIO register.
package simhw

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// CyclesPerTick is the notional CPU frequency this simulation assumes when
// translating the reference firmware's cycle-count timer API into wall
// time, chosen to keep a default 10000-cycle tick_cycles (sched.Config's
// default) in the low-millisecond range during interactive use.
const CyclesPerTick = 10_000_000 // cycles/second, i.e. 10 MHz

// Scheduler is the subset of *sched.Scheduler the timer driver needs. Kept
// as an interface (rather than taking *sched.Scheduler) so the timer does
// not depend on the scheduler core's concrete type -- timer_test.go drives
// it with a stub -- mirroring how
// timer_clint.c only ever calls the trap dispatcher through a function
// pointer, never the scheduler's internals.
type Scheduler interface {
	Tick() error
}

// Timer is a simulated CLINT: a goroutine that calls Scheduler.Tick once
// per tick_cycles, the same contract as the reference's
// timer_ack_and_set_next (re-arm mtimecmp, then wait for the next
// interrupt). Modelled on internal/rate_controller.go's Credit, the
// teacher's other context+WaitGroup-driven background ticker.
type Timer struct {
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	sched      Scheduler
	tickCycles uint32
	now        atomic.Uint64 // simulated mtime, in cycles
}

// NewTimer constructs a Timer bound to sched but does not start it; call
// Init to match the reference's two-step timer_init/timer_ack_and_set_next
// contract.
func NewTimer(sched Scheduler) *Timer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Timer{ctx: ctx, cancel: cancel, sched: sched}
}

// Init starts the ticking goroutine at the given reload value, mirroring
// timer_init: arm mtimecmp for now+cycles, enable MTIE and MIE. There is no
// hart-level interrupt-enable bit here; the goroutine simply runs until
// Stop is called.
func (tm *Timer) Init(cycles uint32) {
	tm.tickCycles = cycles
	interval := cyclesToDuration(cycles)

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-tm.ctx.Done():
				return
			case <-ticker.C:
				tm.now.Add(uint64(tm.tickCycles))
				tm.sched.Tick()
			}
		}
	}()
}

// AckAndSetNext records a new reload value, matching
// timer_ack_and_set_next's signature. A real CLINT is rearmed from trap
// context on every interrupt; this simulation's ticker is self-rearming
// (time.Ticker) and keeps the period Init gave it: AckAndSetNext changes
// what TickCycles reports and how far NowCycles advances per tick, not how
// often Tick is called.
func (tm *Timer) AckAndSetNext(cycles uint32) {
	tm.tickCycles = cycles
}

// NowCycles returns the simulated mtime counter, the Go analogue of
// timer_now_cycles's 64-bit CLINT read.
func (tm *Timer) NowCycles() uint64 {
	return tm.now.Load()
}

// TickCycles returns the current reload value, the analogue of
// timer_tick_cycles.
func (tm *Timer) TickCycles() uint32 {
	return tm.tickCycles
}

// Stop halts the ticking goroutine and waits for it to exit.
func (tm *Timer) Stop() {
	tm.cancel()
	tm.wg.Wait()
}

func cyclesToDuration(cycles uint32) time.Duration {
	d := time.Duration(cycles) * time.Second / CyclesPerTick
	if d <= 0 {
		d = time.Microsecond
	}
	return d
}
