package sched

import "reflect"

// Bootstrap synthesises the initial TrapFrame for a task about to run for
// the first time: program counter set to fn, and interrupt-enable bits set
// so interrupts are enabled the instant the task is dispatched. The frame
// does not record the exit epilogue as fn's return address: its ra slot
// (Regs[0]) is left zero, and the epilogue runs from runTask once fn
// returns. spec.md §4.3 requires the
// frame to be laid out on the task's own stack, 16-byte aligned; this
// simulation has no real stack to lay the frame on (task bodies run as Go
// goroutines with the Go runtime's own stack), so Bootstrap returns a
// TrapFrame that carries PC and MSTATUS for inspection and logging
// without backing it with stack memory. PC is informational only --
// resumption happens by unparking the task's goroutine, not by loading
// this value into hardware.
func Bootstrap(fn TaskFunc) *TrapFrame {
	f := &TrapFrame{
		A0: 0, // arg is delivered as a Go closure value, not packed into a register
	}
	if fn != nil {
		f.PC = uint32(reflect.ValueOf(fn).Pointer())
	}
	ms := MstatusMPPM | MstatusMPIE
	f.MSTATUS = ms
	return f
}
