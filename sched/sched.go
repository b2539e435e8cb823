// Package sched implements the core of a preemptive task scheduler for a
// single hart: a fixed task table, per-priority ready-set bitmasks, a
// trap-driven context-switch contract, and the three scheduling policies
// (RR, Preempt, Hybrid). It never performs I/O and never logs -- it must
// stay callable from trap context with interrupts disabled, where a
// blocking call would wedge the hart. Logging and timer/UART I/O live in
// the external collaborators (simhw, cmd/schedsim) that drive this
// package through Scheduler.Tick and the task-side calls (Yield,
// SleepTicks, WaitEvents, Checkpoint, ...).
//
// Control flow on real hardware:
//
//	timer tick / ecall ---> trap dispatcher ---> Scheduler.OnTrap
//	                              ^                    |
//	                              |                    v
//	                     arch shim restores     chosen task's
//	                     the returned frame      saved TrapFrame
//
// every context switch is a pointer change: "restore whichever frame
// OnTrap returns." This package cannot drive a real hart's register file,
// so it simulates the restore by parking and waking goroutines instead;
// OnTrap itself is a pure decision function over the task table and can be
// exercised directly with synthetic frames, with no goroutines involved.
package sched

import (
	"sync"
)

// ArchShim is the platform primitive the scheduler core consumes (external
// interfaces, consumed by core): an interrupt-enable save/restore pair
// bracketing every critical section. It has no method for raising a
// synchronous reschedule request or installing a trap vector: synchronous
// reschedules go through Scheduler.reschedule directly, and nothing
// installs a trap vector. The default,
// installed automatically by New, maps IRQDisable/IRQRestore onto the
// Scheduler's own mutex -- in this simulation "exactly one flow of control
// touches scheduler state at a time" is enforced by that mutex rather than
// a hart's MIE bit, but the call sites are identical to the reference
// firmware's irq_disable()/irq_restore() pairs.
type ArchShim interface {
	IRQDisable() uint32
	IRQRestore(token uint32)
}

// TimerDriver programs a monotonic tick source. simhw's simulated CLINT
// timer calls Scheduler.Tick once per reference interval; the real-QEMU
// harness would instead acknowledge an actual machine-timer interrupt.
type TimerDriver interface {
	Init(cycles uint32)
	AckAndSetNext(cycles uint32)
}

// SchedulerStats counts scheduler activity for diagnostics (cmd/schedsim
// prints it on exit); it is not consulted by any scheduling decision.
type SchedulerStats struct {
	Ticks           uint64
	Reschedules     uint64
	TimerPreempts   uint64
	VoluntaryYields uint64
	TasksCreated    int
	TasksExited     int
}

// Scheduler is the single owning object for all scheduler state: the task
// table, per-priority ready masks, RR cursors, and the tick counter. The
// reference keeps this as process-wide mutable globals; here it is a
// struct constructed once by New, with interior mutation guarded by mu --
// the single-hart critical section made explicit.
type Scheduler struct {
	mu sync.Mutex

	cfg Config

	tasks      []task
	currentTid TID
	ticks      uint32

	ready    []uint32 // len == cfg.MaxPrio
	rrCursor []uint8  // len == cfg.MaxPrio

	started bool
	halted  *HaltError

	// reschedPending is set by Tick when timerAccounting decides the
	// running task's slice (or priority standing) calls for a
	// reschedule. A real timer interrupt would act on this immediately;
	// a Go goroutine cannot be stopped mid-execution without its
	// cooperation, so the actual switch is deferred until the running
	// task reaches a safe point (Checkpoint, Yield, or a blocking call).
	reschedPending bool

	haltCh chan struct{}
	shim   ArchShim

	stats SchedulerStats
}

type archShim struct {
	s *Scheduler
}

func (a *archShim) IRQDisable() uint32 {
	a.s.mu.Lock()
	return 1
}

func (a *archShim) IRQRestore(uint32) {
	a.s.mu.Unlock()
}

// New validates cfg and constructs a Scheduler with a fixed-size task
// table. It does not create the idle task; the caller must do so via
// TaskCreate before Start.
func New(cfg *Config) (*Scheduler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxTasks < 1 || cfg.MaxTasks > MaxTasksLimit {
		return nil, ErrInvalidArgument
	}
	if cfg.MaxPrio < 1 {
		return nil, ErrInvalidArgument
	}
	if cfg.MaxHarts != 1 {
		// Multi-hart SMP is out of scope (spec.md §1 Non-goals); refuse
		// rather than silently mis-schedule (Open Question #2).
		return nil, ErrInvalidArgument
	}

	s := &Scheduler{
		cfg:        *cfg,
		tasks:      make([]task, cfg.MaxTasks),
		currentTid: NoTID,
		ready:      make([]uint32, cfg.MaxPrio),
		rrCursor:   make([]uint8, cfg.MaxPrio),
		haltCh:     make(chan struct{}),
	}
	s.shim = &archShim{s: s}
	return s, nil
}

// Ticks returns the current tick count.
func (s *Scheduler) Ticks() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// CurrentTid returns the id of the currently running task, or NoTID before
// Start.
func (s *Scheduler) CurrentTid() TID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTid
}

// Stats returns a copy of the scheduler's running counters.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func readySet(ready []uint32, t *task, tid int) {
	ready[t.prio] |= 1 << uint(tid)
	t.state = Ready
}

func readyClear(ready []uint32, t *task, tid int) {
	ready[t.prio] &^= 1 << uint(tid)
}

func anyReady(ready []uint32) bool {
	for _, mask := range ready {
		if mask != 0 {
			return true
		}
	}
	return false
}

// pickNext implements the selection algorithm of spec.md §4.1, identical
// across policies in shape (scan priorities low to high, rotate or not
// within the first non-empty one) but parameterised by cfg.Policy exactly
// as pick_next_tid does in the reference.
func (s *Scheduler) pickNext() int {
	if !anyReady(s.ready) {
		return 0 // idle
	}

	if s.cfg.Policy == RR {
		mask := s.ready[0]
		start := int(s.rrCursor[0]) + 1
		for k := 0; k < len(s.tasks); k++ {
			tid := (start + k) % len(s.tasks)
			if mask&(1<<uint(tid)) != 0 {
				s.rrCursor[0] = uint8(tid)
				return tid
			}
		}
		return 0
	}

	for p := 0; p < s.cfg.MaxPrio; p++ {
		mask := s.ready[p]
		if mask == 0 {
			continue
		}

		if s.cfg.Policy == Preempt {
			for tid := 0; tid < len(s.tasks); tid++ {
				if mask&(1<<uint(tid)) != 0 {
					return tid
				}
			}
			continue
		}

		// Hybrid: RR within the first non-empty priority.
		start := int(s.rrCursor[p]) + 1
		for k := 0; k < len(s.tasks); k++ {
			tid := (start + k) % len(s.tasks)
			if mask&(1<<uint(tid)) != 0 {
				s.rrCursor[p] = uint8(tid)
				return tid
			}
		}
	}
	return 0
}

func existsHigherReady(ready []uint32, curPrio int) bool {
	for p := 0; p < curPrio; p++ {
		if ready[p] != 0 {
			return true
		}
	}
	return false
}

func (s *Scheduler) tickWakeSleepers() {
	for tid := range s.tasks {
		t := &s.tasks[tid]
		if t.state == Sleep && int32(s.ticks-t.wakeTick) >= 0 {
			readySet(s.ready, t, tid)
		}
	}
}

// timerAccounting is the tick-bookkeeping half of a timer trap: advance
// ticks, wake any SLEEP task whose wake_tick has arrived (comparing as
// signed so a wrapped tick counter is still handled correctly), and
// evaluate the running task's slice/priority standing. It reports whether
// policy calls for a reschedule, without performing one -- callers decide
// how to act on that (OnTrap acts immediately since it owns the caller's
// control flow already; Tick only latches it, see Tick's doc comment).
// Call with mu held.
func (s *Scheduler) timerAccounting() bool {
	s.ticks++
	s.stats.Ticks++
	s.tickWakeSleepers()

	if s.currentTid == NoTID {
		return false
	}
	cur := &s.tasks[s.currentTid]
	switch s.cfg.Policy {
	case Hybrid, RR:
		if cur.sliceReload != 0 {
			if cur.sliceLeft > 0 {
				cur.sliceLeft--
			}
			if cur.sliceLeft == 0 {
				cur.sliceLeft = cur.sliceReload
				if existsHigherReady(s.ready, cur.prio) ||
					s.ready[cur.prio]&^(1<<uint(s.currentTid)) != 0 {
					return true
				}
			}
		}
	case Preempt:
		if existsHigherReady(s.ready, cur.prio) {
			return true
		}
	}
	return false
}

// OnTrap is sched_on_trap: the pivot. Given the frame just saved at a trap
// boundary, it decides whether to stay with the current task or switch,
// and returns the frame that must be restored on exit. It is safe (and
// intended) to call directly in tests with synthetic frames -- it touches
// only the task table, ready masks and tick counter, never a goroutine.
func (s *Scheduler) OnTrap(frame *TrapFrame, fromTimer, forceResched bool) (*TrapFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onTrapLocked(frame, fromTimer, forceResched)
}

func (s *Scheduler) onTrapLocked(frame *TrapFrame, fromTimer, forceResched bool) (*TrapFrame, error) {
	if s.currentTid != NoTID {
		s.tasks[s.currentTid].frame = frame
	}

	needResched := forceResched

	if fromTimer && s.timerAccounting() {
		needResched = true
	}

	if !needResched {
		if s.currentTid != NoTID {
			return s.tasks[s.currentTid].frame, nil
		}
		return frame, nil
	}

	s.stats.Reschedules++
	if fromTimer {
		s.stats.TimerPreempts++
	} else {
		s.stats.VoluntaryYields++
	}

	if s.currentTid != NoTID && s.tasks[s.currentTid].state == Running {
		readySet(s.ready, &s.tasks[s.currentTid], int(s.currentTid))
	}

	next := s.pickNext()
	readyClear(s.ready, &s.tasks[next], next)
	s.tasks[next].state = Running
	s.currentTid = TID(next)

	nf := s.tasks[next].frame
	if nf != nil {
		nf.tid = next
	}
	return nf, nil
}

// Tick is called by a TimerDriver once per reference interval. It performs
// the tick-accounting half of a timer trap (advancing Ticks, waking
// sleepers, evaluating the running task's slice) and, if that calls for a
// reschedule, latches it for Checkpoint to act on. It never itself parks
// or wakes a task goroutine: the goroutine backing the currently RUNNING
// task is off executing arbitrary Go code, not blocked inside a scheduler
// call, so there is nothing for Tick to hand off to yet. See Checkpoint.
func (s *Scheduler) Tick() error {
	s.mu.Lock()
	if s.halted != nil {
		err := s.halted
		s.mu.Unlock()
		return err
	}
	if s.timerAccounting() {
		s.reschedPending = true
	}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) frameFor(tid TID) *TrapFrame {
	if tid == NoTID {
		return nil
	}
	return s.tasks[tid].frame
}

// handoff performs the goroutine side of a context switch decided by
// onTrapLocked: wake the chosen task and, if the caller is a task
// (callerTid != NoTID), park it until it is chosen again. A caller that
// has just gone ZOMBIE is parked too, and stays parked for good, since
// nothing selects a ZOMBIE task or signals its resume channel again. The caller must
// only invoke this when nextTid differs from the task that logically held
// the CPU going in -- when pickNext re-selects the same tid, that tid's
// goroutine is already executing and must not be sent a redundant resume
// signal, which would overflow its 1-deep buffer on the next reschedule.
func (s *Scheduler) handoff(callerTid TID, nextTid int) error {
	s.tasks[nextTid].resume <- struct{}{}
	if callerTid != NoTID {
		<-s.tasks[callerTid].resume
	}
	return nil
}

// reschedule is the synchronous-trap path shared by Yield, SleepTicks,
// SleepUntil, WaitEvents and the task-exit epilogue: it always forces a
// reschedule decision (force_resched=true, as task_yield's ecall does),
// then performs the handoff.
func (s *Scheduler) reschedule(callerTid TID) error {
	s.mu.Lock()
	frame, err := s.onTrapLocked(s.frameFor(callerTid), false, true)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	newTid := frame.tidOf()
	s.mu.Unlock()

	if TID(newTid) == callerTid {
		return nil
	}
	return s.handoff(callerTid, newTid)
}

// Checkpoint gives a long-running task a safe point at which a pending
// timer preemption (see Tick) takes effect. Tasks that never block and
// never call Checkpoint cannot be preempted in this simulation -- the
// same way a real busy loop with interrupts masked cannot be preempted
// either. It only forces a reschedule when Tick actually latched one;
// otherwise it returns immediately, so polling it in a tight loop costs
// little more than a mutex round-trip.
func (s *Scheduler) Checkpoint() error {
	tid := s.CurrentTid()
	if tid == NoTID {
		return nil
	}

	s.mu.Lock()
	pending := s.reschedPending
	s.reschedPending = false
	s.mu.Unlock()

	if !pending {
		return nil
	}
	return s.reschedule(tid)
}

// Yield issues a synchronous reschedule request: the only legal way to
// voluntarily give up the CPU from task context.
func (s *Scheduler) Yield() error {
	tid := s.CurrentTid()
	if tid == NoTID {
		return ErrNotReady
	}
	return s.reschedule(tid)
}
