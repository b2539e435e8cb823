package sched

import "errors"

// Recoverable errors returned by the public API. A trap-context internal
// inconsistency is never reported this way -- see Scheduler.Halt and
// HaltError, which treat it as fatal instead.
var (
	// ErrInvalidArgument covers a nil fn, a nil or undersized stack, an
	// out-of-range tid, or a multi-hart Config at New.
	ErrInvalidArgument = errors.New("sched: invalid argument")

	// ErrNoSlot is returned by TaskCreate once the task table is full.
	// Slots are never recycled, so this is permanent once MaxTasks tasks
	// have been created, even if some are ZOMBIE.
	ErrNoSlot = errors.New("sched: no free task slot")

	// ErrNotReady is returned by Start if tid 0 (the idle task) has not
	// been created yet.
	ErrNotReady = errors.New("sched: idle task not created")
)

// HaltError is the fatal condition recorded by Scheduler.Halt, whose
// callers use it for an unrecognised trap cause or an internal
// inconsistency with no caller to report an error to. Once Halt has been
// called, Start returns it and every later Tick returns it; the caller is
// expected to treat it the way real firmware halts the hart. OnTrap makes
// no consistency checks of its own and never returns it.
type HaltError struct {
	Reason string
}

func (e *HaltError) Error() string {
	return "sched: fatal, halting: " + e.Reason
}
