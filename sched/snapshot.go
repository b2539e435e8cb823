package sched

import "github.com/huandu/go-clone"

// TaskSnapshot is a deep, point-in-time copy of one task slot's visible
// state, safe to inspect or mutate without affecting the live Scheduler.
type TaskSnapshot struct {
	State         TaskState
	Prio          int
	SliceReload   uint32
	SliceLeft     uint32
	WakeTick      uint32
	PendingEvents uint32
	WaitMask      uint32
	Frame         TrapFrame
}

// Snapshot returns a deep copy of the task table and the scheduler's
// scalar state, suitable for cmd/schedsim -diag and for tests that assert
// on the table's shape after mutating a clone rather than the live
// scheduler (the pattern config_test.go exercises with clone.Clone).
func (s *Scheduler) Snapshot() (tasks []TaskSnapshot, currentTid TID, ticks uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks = make([]TaskSnapshot, len(s.tasks))
	for i := range s.tasks {
		t := &s.tasks[i]
		snap := TaskSnapshot{
			State:         t.state,
			Prio:          t.prio,
			SliceReload:   t.sliceReload,
			SliceLeft:     t.sliceLeft,
			WakeTick:      t.wakeTick,
			PendingEvents: t.pendingEvents,
			WaitMask:      t.waitMask,
		}
		if t.frame != nil {
			snap.Frame = *clone.Clone(t.frame).(*TrapFrame)
		}
		tasks[i] = snap
	}
	return tasks, s.currentTid, s.ticks
}
