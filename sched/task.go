package sched

import "fmt"

// TaskState is one of the six states a task slot may occupy.
type TaskState int

const (
	Unused TaskState = iota
	Ready
	Running
	Sleep
	Wait
	Zombie
)

func (s TaskState) String() string {
	switch s {
	case Unused:
		return "UNUSED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Sleep:
		return "SLEEP"
	case Wait:
		return "WAIT"
	case Zombie:
		return "ZOMBIE"
	default:
		return fmt.Sprintf("TaskState(%d)", int(s))
	}
}

// TaskFunc is a task entry point. arg is whatever was passed to TaskCreate,
// delivered the way the reference firmware delivers it in A0.
type TaskFunc func(arg any)

// TID identifies a task slot, stable for the life of the scheduler (slots
// are never recycled, see SPEC_FULL.md's Open Question #1 decision).
type TID int

// NoTID is the out-of-band "none" value used for currentTid before Start.
const NoTID TID = -1

// task is one slot in the fixed-size task table. Every field below is only
// ever mutated with Scheduler.mu held, which stands in for the reference's
// interrupt-disabled critical section -- the only concurrency primitive
// available on a single hart.
type task struct {
	state TaskState

	fn  TaskFunc
	arg any

	prio int
	// sliceReload/sliceLeft: the slice length in ticks under RR/HYBRID; 0
	// means "no slicing" (PREEMPT, or a RUNNING task under a policy that
	// doesn't slice).
	sliceReload uint32
	sliceLeft   uint32

	wakeTick uint32

	pendingEvents uint32
	waitMask      uint32

	frame *TrapFrame

	// resume is the handoff gate: Scheduler signals it when this task is
	// selected to run, and the task's own goroutine parks on it after
	// giving up the CPU. Buffered 1 so a signal sent just before the
	// receiver parks is never lost.
	resume chan struct{}
	// done is closed once the task's goroutine has returned from fn and
	// run the exit epilogue, for tests that want to wait for quiescence.
	done chan struct{}
}
