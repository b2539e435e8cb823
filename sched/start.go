package sched

import "context"

// Start requires tid 0 (the idle task) to exist, picks the first runnable
// tid, marks it RUNNING, and hands control to it. On real hardware this
// never returns; here it blocks until ctx is cancelled or a fatal
// condition halts the scheduler (see Halt), the Go-idiomatic rendering of
// "does not return" that still gives a test or CLI harness a way to stop
// it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.tasks[0].state == Unused {
		s.mu.Unlock()
		return ErrNotReady
	}
	if s.started {
		s.mu.Unlock()
		return ErrInvalidArgument
	}
	s.started = true

	next := s.pickNext()
	readyClear(s.ready, &s.tasks[next], next)
	s.tasks[next].state = Running
	s.currentTid = TID(next)
	resume := s.tasks[next].resume
	s.mu.Unlock()

	resume <- struct{}{}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.haltCh:
		s.mu.Lock()
		err := s.halted
		s.mu.Unlock()
		return err
	}
}

// Halt raises the fatal condition described in spec.md §7: an
// unrecognised trap cause, or an internal inconsistency with no caller to
// report an error to. It unblocks Start with the given reason. Safe to
// call at most once; subsequent calls are no-ops.
func (s *Scheduler) Halt(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted != nil {
		return
	}
	s.halted = &HaltError{Reason: reason}
	close(s.haltCh)
}
