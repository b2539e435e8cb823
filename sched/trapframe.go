package sched

// TrapFrame is the saved register image of a task at the moment it was
// interrupted, mirroring the layout a real RV32 trap prologue would save
// (include/trap.h in the reference firmware): ra, gp, tp, t0-t2, s0-s1,
// a0-a7, s2-s11, t3-t6, mepc, mstatus, mcause, mtval.
//
// The scheduler core reads and writes exactly three fields -- PC, A0 and
// MSTATUS -- to synthesise the initial frame in Bootstrap. Everything else
// is opaque: the core only ever stores a *TrapFrame and hands it back,
// never inspecting Regs. Implementations that drive a real hart would
// restore the full 34-word image from this struct; this simulation instead
// uses the frame as a non-forgeable handle naming "the saved execution
// state of exactly one task at exactly one suspension point" and performs
// the actual resumption with a goroutine parked on resume.
type TrapFrame struct {
	// PC is the saved program counter (mepc). Bootstrap sets it to the
	// task's entry function.
	PC uint32
	// A0 is the first integer argument register, delivered to the task
	// entry function on first dispatch.
	A0 uint32
	// MSTATUS carries the machine-mode status bits, in particular MPIE
	// (interrupts enabled on return) and the MPP field (M-mode).
	MSTATUS uint32
	// Regs backs the remaining 31 saved words (ra, gp, tp, t0-t2, s0-s1,
	// a1-a7, s2-s11, t3-t6, mcause, mtval) that the core never reads.
	Regs [31]uint32

	tid int
}

// tidOf reports which task slot a frame was synthesised for. reschedule
// uses it to tell which task's goroutine to wake; the core never exposes
// this.
func (f *TrapFrame) tidOf() int {
	if f == nil {
		return -1
	}
	return f.tid
}
