package sched

// TaskCreate allocates an UNUSED slot, initialises it, synthesises an
// initial trap frame via Bootstrap, and sets the slot READY. stack must be
// at least MinStackWords long; TaskCreate clears it (mirroring the
// reference's memset, done here with the builtin clear instead of a
// hand-rolled libc) even though this simulation's task bodies run on the
// Go runtime's own stack rather than on the supplied buffer.
//
// Slots are never recycled (see SPEC_FULL.md's Open Question #1 decision):
// once MaxTasks slots have been used, TaskCreate returns ErrNoSlot forever,
// even if some of them are ZOMBIE.
func (s *Scheduler) TaskCreate(fn TaskFunc, arg any, prio int, stack []uint32, sliceTicks uint32) (TID, error) {
	if fn == nil || stack == nil || len(stack) < MinStackWords {
		return NoTID, ErrInvalidArgument
	}
	if prio < 0 {
		return NoTID, ErrInvalidArgument
	}
	if prio >= s.cfg.MaxPrio {
		prio = s.cfg.MaxPrio - 1
	}

	tok := s.shim.IRQDisable()
	defer s.shim.IRQRestore(tok)

	tid := -1
	for i := range s.tasks {
		if s.tasks[i].state == Unused {
			tid = i
			break
		}
	}
	if tid < 0 {
		return NoTID, ErrNoSlot
	}

	clear(stack)

	t := &s.tasks[tid]
	t.fn = fn
	t.arg = arg
	t.prio = prio
	t.pendingEvents = 0
	t.waitMask = 0
	t.wakeTick = 0
	t.resume = make(chan struct{}, 1)
	t.done = make(chan struct{})

	if s.cfg.Policy == Preempt {
		t.sliceReload, t.sliceLeft = 0, 0
	} else {
		slice := sliceTicks
		if slice == 0 {
			slice = 1
		}
		t.sliceReload, t.sliceLeft = slice, slice
	}

	if s.cfg.Policy == RR {
		t.prio = 0
	}

	t.frame = Bootstrap(fn)
	t.frame.tid = tid

	readySet(s.ready, t, tid)

	s.stats.TasksCreated++

	go s.runTask(TID(tid), t)

	return TID(tid), nil
}

// TaskDone returns a channel closed once tid has run its exit epilogue,
// for tests that need to wait for a task to finish without polling State.
func (s *Scheduler) TaskDone(tid TID) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[tid].done
}

// State returns tid's current state. Returns Unused and ErrInvalidArgument
// for an out-of-range tid.
func (s *Scheduler) State(tid TID) (TaskState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tid < 0 || int(tid) >= len(s.tasks) {
		return Unused, ErrInvalidArgument
	}
	return s.tasks[tid].state, nil
}

// runTask is the goroutine body for a created task: park until first
// selected, run fn, then fall into the exit epilogue.
func (s *Scheduler) runTask(tid TID, t *task) {
	<-t.resume
	t.fn(t.arg)
	s.markZombie(tid)
	close(t.done)
	// Yield one last time so pickNext runs again without this tid. The
	// call never returns: nothing ever signals a ZOMBIE task's resume
	// channel again, matching the reference's "for(;;){}" after task_exit.
	s.reschedule(tid)
}

// markZombie is the state-transition half of the scheduler-provided
// epilogue spec.md §4.1 requires to run when fn returns: under the
// critical section, mark the task ZOMBIE and clear its ready bit. The
// scheduler never selects a ZOMBIE task again.
func (s *Scheduler) markZombie(tid TID) {
	s.mu.Lock()
	t := &s.tasks[tid]
	t.state = Zombie
	readyClear(s.ready, t, int(tid))
	s.stats.TasksExited++
	s.mu.Unlock()
}
