package sched

import (
	"context"
	"testing"
	"time"
)

// newTestScheduler builds a Scheduler with the given policy and an idle
// task already created at tid 0, ready for further TaskCreate calls and
// Start.
func newTestScheduler(t *testing.T, policy Policy, maxPrio int) *Scheduler {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Policy = policy
	if maxPrio > 0 {
		cfg.MaxPrio = maxPrio
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stack := make([]uint32, MinStackWords)
	if _, err := s.TaskCreate(IdleTask(s), nil, cfg.MaxPrio-1, stack, 0); err != nil {
		t.Fatalf("TaskCreate(idle): %v", err)
	}
	return s
}

// runScheduler starts s in the background and drives its timer on a tight
// loop until the test cleans up. Nothing else in this simulation advances
// time, so without a ticker the idle task (or any task that never calls
// Yield/Sleep/Wait) would never notice a newly-readied task.
func runScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Microsecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()

	t.Cleanup(func() {
		close(stop)
		cancel()
	})
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// TestPreemptPriority exercises spec.md §8's priority-preemption scenario
// under PREEMPT: a low-priority task spinning on Checkpoint must not run
// while a higher-priority task is ready.
func TestPreemptPriority(t *testing.T) {
	s := newTestScheduler(t, Preempt, 4)
	runScheduler(t, s)

	var hiRuns, loRuns, loRunsWhileHi int
	hiDone := make(chan struct{})

	stackHi := make([]uint32, MinStackWords)
	_, err := s.TaskCreate(func(any) {
		for i := 0; i < 20; i++ {
			hiRuns++
			s.Checkpoint()
		}
		// Sampled while hi is still RUNNING: once hi returns, lo is the
		// highest-priority ready task and may run before the test reads it.
		loRunsWhileHi = loRuns
		close(hiDone)
	}, nil, 0, stackHi, 0)
	if err != nil {
		t.Fatalf("TaskCreate(hi): %v", err)
	}

	stackLo := make([]uint32, MinStackWords)
	_, err = s.TaskCreate(func(any) {
		for {
			loRuns++
			s.Checkpoint()
		}
	}, nil, 1, stackLo, 0)
	if err != nil {
		t.Fatalf("TaskCreate(lo): %v", err)
	}

	waitFor(t, hiDone, "higher-priority task to complete")

	if hiRuns < 20 {
		t.Errorf("hiRuns = %d, want >= 20", hiRuns)
	}
	// lo is READY the whole time but strictly lower priority than hi, so
	// under PREEMPT it must never be chosen while hi is runnable.
	if loRunsWhileHi != 0 {
		t.Errorf("loRuns = %d, want 0 while a higher-priority task is ready", loRunsWhileHi)
	}
}

// TestRRRotation exercises spec.md §8's RR scenario: under RR every task is
// priority 0 and rotates fairly among the ready set.
func TestRRRotation(t *testing.T) {
	s := newTestScheduler(t, RR, 1)
	runScheduler(t, s)

	const rounds = 6
	counts := make([]int, 2)
	done := make(chan struct{})

	for i := 0; i < 2; i++ {
		i := i
		stack := make([]uint32, MinStackWords)
		_, err := s.TaskCreate(func(any) {
			for r := 0; r < rounds; r++ {
				counts[i]++
				s.Yield()
			}
			if i == 1 {
				close(done)
			}
		}, nil, 0, stack, 0)
		if err != nil {
			t.Fatalf("TaskCreate(%d): %v", i, err)
		}
	}

	waitFor(t, done, "RR tasks to finish")

	if counts[0] == 0 || counts[1] == 0 {
		t.Fatalf("expected both tasks to run, got counts=%v", counts)
	}
}

// TestHybridSlicing exercises spec.md §8's HYBRID scenario: equal-priority
// tasks share the CPU in time slices even without an explicit Yield, once
// the running task reaches a Checkpoint after its slice has expired.
func TestHybridSlicing(t *testing.T) {
	s := newTestScheduler(t, Hybrid, 4)
	runScheduler(t, s)

	var aRuns, bRuns int
	stop := make(chan struct{})

	stackA := make([]uint32, MinStackWords)
	_, err := s.TaskCreate(func(any) {
		for {
			select {
			case <-stop:
				return
			default:
			}
			aRuns++
			s.Checkpoint()
		}
	}, nil, 0, stackA, 2)
	if err != nil {
		t.Fatalf("TaskCreate(a): %v", err)
	}

	stackB := make([]uint32, MinStackWords)
	_, err = s.TaskCreate(func(any) {
		for {
			select {
			case <-stop:
				return
			default:
			}
			bRuns++
			s.Checkpoint()
		}
	}, nil, 0, stackB, 2)
	if err != nil {
		t.Fatalf("TaskCreate(b): %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	close(stop)

	if aRuns == 0 || bRuns == 0 {
		t.Errorf("expected both equal-priority tasks to make progress, got aRuns=%d bRuns=%d", aRuns, bRuns)
	}
}

// TestSleepAccuracy exercises spec.md §8's sleep scenario: SleepTicks must
// not wake a task before at least dt ticks have elapsed.
func TestSleepAccuracy(t *testing.T) {
	s := newTestScheduler(t, Hybrid, 4)
	runScheduler(t, s)

	const dt = 5
	var wakeTick uint32
	startTick := s.Ticks()
	woke := make(chan struct{})

	stack := make([]uint32, MinStackWords)
	_, err := s.TaskCreate(func(any) {
		s.SleepTicks(dt)
		wakeTick = s.Ticks()
		close(woke)
	}, nil, 0, stack, 0)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	waitFor(t, woke, "sleeping task to wake")

	if wakeTick < startTick+dt {
		t.Errorf("woke at tick %d, want >= %d", wakeTick, startTick+dt)
	}
}

// TestEventDelivery exercises spec.md §8's event scenario: SetEvents wakes
// a WAIT task only when the delivered bits intersect its wait mask.
func TestEventDelivery(t *testing.T) {
	s := newTestScheduler(t, Hybrid, 4)
	runScheduler(t, s)

	const maskA = 1 << 0
	const maskB = 1 << 1
	gotA := make(chan struct{})

	stack := make([]uint32, MinStackWords)
	waiter, err := s.TaskCreate(func(any) {
		s.WaitEvents(maskA)
		close(gotA)
	}, nil, 0, stack, 0)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	// Delivering an unrelated bit must not wake the waiter.
	s.SetEvents(waiter, maskB)
	time.Sleep(20 * time.Millisecond)
	select {
	case <-gotA:
		t.Fatal("waiter woke on an unrelated event bit")
	default:
	}

	s.SetEvents(waiter, maskA)
	waitFor(t, gotA, "waiter to wake after its bit was delivered")
}

// TestEventDeliveryFastPath exercises the no-yield fast path: if the bit is
// already pending when WaitEvents is called, it returns immediately without
// ever suspending the caller.
func TestEventDeliveryFastPath(t *testing.T) {
	s := newTestScheduler(t, Hybrid, 4)
	runScheduler(t, s)

	const mask = 1 << 0
	done := make(chan struct{})
	stack := make([]uint32, MinStackWords)
	_, err := s.TaskCreate(func(any) {
		tid := s.CurrentTid()
		s.SetEvents(tid, mask) // pre-pend the bit on itself
		s.WaitEvents(mask)     // fast path: already pending, must not block
		close(done)
	}, nil, 0, stack, 0)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}
	waitFor(t, done, "fast-path WaitEvents to return without blocking")
}

// TestTaskExit exercises spec.md §8's exit scenario: a task that returns
// from its TaskFunc transitions to ZOMBIE, is never selected again, and its
// done channel is closed.
func TestTaskExit(t *testing.T) {
	s := newTestScheduler(t, Hybrid, 4)
	runScheduler(t, s)

	stack := make([]uint32, MinStackWords)
	tid, err := s.TaskCreate(func(any) {}, nil, 0, stack, 0)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	waitFor(t, s.TaskDone(tid), "task to exit")

	st, err := s.State(tid)
	if err != nil {
		t.Fatal(err)
	}
	if st != Zombie {
		t.Errorf("State = %v, want ZOMBIE", st)
	}

	time.Sleep(20 * time.Millisecond)
	st2, _ := s.State(tid)
	if st2 != Zombie {
		t.Errorf("exited task left ZOMBIE, got %v", st2)
	}
}

// TestOnTrapPure exercises OnTrap directly with synthetic frames, with no
// goroutines or Start involved at all -- the pure decision-function
// contract its doc comment promises.
func TestOnTrapPure(t *testing.T) {
	s := newTestScheduler(t, Preempt, 4)

	stack := make([]uint32, MinStackWords)
	tid, err := s.TaskCreate(func(any) {
		<-make(chan struct{}) // never runs in this test
	}, nil, 0, stack, 0)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	frame := &TrapFrame{PC: 0x1000}
	next, err := s.OnTrap(frame, false, true)
	if err != nil {
		t.Fatalf("OnTrap: %v", err)
	}
	if TID(next.tidOf()) != tid {
		t.Errorf("OnTrap picked tid %d, want %d", next.tidOf(), tid)
	}

	st, _ := s.State(tid)
	if st != Running {
		t.Errorf("State after OnTrap = %v, want RUNNING", st)
	}
}
