package sched

// SleepTicks transitions the calling task to SLEEP until Ticks() has
// advanced by at least dt, then yields. Must be called from task context
// (i.e. from inside the TaskFunc passed to TaskCreate).
func (s *Scheduler) SleepTicks(dt uint32) error {
	tid := s.CurrentTid()
	if tid == NoTID {
		return ErrNotReady
	}
	return s.sleepUntilLocked(tid, s.Ticks()+dt)
}

// SleepUntil transitions the calling task to SLEEP until Ticks() reaches
// abs (compared as signed, so it is safe across a tick-counter wrap), then
// yields.
func (s *Scheduler) SleepUntil(abs uint32) error {
	tid := s.CurrentTid()
	if tid == NoTID {
		return ErrNotReady
	}
	return s.sleepUntilLocked(tid, abs)
}

func (s *Scheduler) sleepUntilLocked(tid TID, wakeTick uint32) error {
	tok := s.shim.IRQDisable()
	t := &s.tasks[tid]
	t.wakeTick = wakeTick
	t.state = Sleep
	readyClear(s.ready, t, int(tid))
	s.shim.IRQRestore(tok)

	return s.reschedule(tid)
}

// WaitEvents blocks the calling task until at least one bit in mask has
// been delivered via SetEvents. If any requested bit is already pending,
// it is consumed and WaitEvents returns immediately without yielding (the
// fast path spec.md §4.1 calls out explicitly).
func (s *Scheduler) WaitEvents(mask uint32) error {
	tid := s.CurrentTid()
	if tid == NoTID {
		return ErrNotReady
	}

	tok := s.shim.IRQDisable()
	t := &s.tasks[tid]
	if t.pendingEvents&mask != 0 {
		t.pendingEvents &^= mask
		s.shim.IRQRestore(tok)
		return nil
	}

	t.waitMask = mask
	t.state = Wait
	readyClear(s.ready, t, int(tid))
	s.shim.IRQRestore(tok)

	if err := s.reschedule(tid); err != nil {
		return err
	}

	tok = s.shim.IRQDisable()
	t.pendingEvents &^= mask
	t.waitMask = 0
	s.shim.IRQRestore(tok)
	return nil
}

// SetEvents ORs mask into tid's pending events and, if tid is WAIT and the
// newly pending bits intersect its wait mask, makes it READY. It never
// suspends the caller, even when it wakes a strictly higher-priority
// task -- the woken task only runs at the caller's next suspension point
// or the next timer tick (spec.md §5, §9's "event delivery does not
// preempt" design note). Safe from any context; a no-op for an
// out-of-range tid.
func (s *Scheduler) SetEvents(tid TID, mask uint32) {
	if tid < 0 || int(tid) >= len(s.tasks) {
		return
	}
	tok := s.shim.IRQDisable()
	defer s.shim.IRQRestore(tok)

	t := &s.tasks[tid]
	t.pendingEvents |= mask
	if t.state == Wait && t.pendingEvents&t.waitMask != 0 {
		readySet(s.ready, t, int(tid))
	}
}
