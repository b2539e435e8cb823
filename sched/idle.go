package sched

import "runtime"

// IdleTask is a ready-made TaskFunc for tid 0: it never blocks and never
// exits, matching spec.md §3's invariant 6. The reference idle task
// executes `wfi` in a loop, parking the hart until the next interrupt;
// the closest a goroutine can come to that is calling Checkpoint (so a
// pending timer preemption takes effect) and yielding the OS thread
// between checks instead of spinning it at 100%.
func IdleTask(s *Scheduler) TaskFunc {
	return func(any) {
		for {
			if err := s.Checkpoint(); err != nil {
				return
			}
			runtime.Gosched()
		}
	}
}
