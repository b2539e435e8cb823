package simhw

import (
	"fmt"

	"github.com/matthonolive/riscv-scheduler/sched"
)

const stackWords = 256 // 1KiB per task on a 32-bit target

// TaskDef is a named, spawnable task: an id the interactive dispatcher
// accepts from the UART, an entry point, a priority and an RR/HYBRID slice,
// the Go analogue of task_table.c's TaskDef.
type TaskDef struct {
	ID    uint32
	Name  string
	Prio  int
	Slice uint32
	Fn    func(s *sched.Scheduler, u *UART) sched.TaskFunc
}

// DemoTasks mirrors task_table.c's g_tasks: a chatty periodic task, a
// faster periodic task, and a priority-6 CPU hog with no slice, useful for
// exercising PREEMPT's starvation behaviour interactively.
func DemoTasks() []TaskDef {
	return []TaskDef{
		{ID: 1, Name: "A", Prio: 2, Slice: 5, Fn: func(s *sched.Scheduler, u *UART) sched.TaskFunc {
			return func(any) {
				for {
					u.PutS("A")
					s.SleepTicks(100)
				}
			}
		}},
		{ID: 2, Name: "b", Prio: 3, Slice: 5, Fn: func(s *sched.Scheduler, u *UART) sched.TaskFunc {
			return func(any) {
				for {
					u.PutS("b")
					s.SleepTicks(37)
				}
			}
		}},
		{ID: 3, Name: "hog", Prio: 6, Slice: 0, Fn: func(s *sched.Scheduler, u *UART) sched.TaskFunc {
			return func(any) {
				for {
					u.PutS(".")
					s.Checkpoint()
				}
			}
		}},
	}
}

// StackPool hands out fixed-size stack buffers, the Go analogue of
// spawn.c's static g_stack_pool/g_stack_used arrays. sched.TaskCreate never
// reads the words it's given (task bodies run on the goroutine's own
// stack), but the pool still enforces the same "one buffer per task slot,
// never freed" discipline the reference firmware relies on.
type StackPool struct {
	bufs [][]uint32
	used []bool
}

// NewStackPool preallocates n stacks of stackWords words each.
func NewStackPool(n int) *StackPool {
	p := &StackPool{bufs: make([][]uint32, n), used: make([]bool, n)}
	for i := range p.bufs {
		p.bufs[i] = make([]uint32, stackWords)
	}
	return p
}

// Alloc returns the next free stack, or nil if the pool is exhausted.
func (p *StackPool) Alloc() []uint32 {
	for i, used := range p.used {
		if !used {
			p.used[i] = true
			return p.bufs[i]
		}
	}
	return nil
}

// Spawner ties a Scheduler, a TaskDef table and a StackPool together,
// the Go analogue of spawn_task_id: look up id, allocate a stack, call
// TaskCreate, report the outcome over the UART.
type Spawner struct {
	Sched *sched.Scheduler
	UART  *UART
	Defs  []TaskDef
	Pool  *StackPool
}

// SpawnID looks up id among Defs and creates it, writing a one-line status
// to UART exactly as spawn_task_id does (tid on success, a reason on
// failure) and returning the same information to the caller.
func (sp *Spawner) SpawnID(id uint32) (sched.TID, error) {
	var def *TaskDef
	for i := range sp.Defs {
		if sp.Defs[i].ID == id {
			def = &sp.Defs[i]
			break
		}
	}
	if def == nil {
		sp.UART.PutS("[spawn] unknown id\n")
		return sched.NoTID, fmt.Errorf("simhw: no task definition with id %d", id)
	}

	stack := sp.Pool.Alloc()
	if stack == nil {
		sp.UART.PutS("[spawn] no stack slots (task limit hit)\n")
		return sched.NoTID, sched.ErrNoSlot
	}

	tid, err := sp.Sched.TaskCreate(def.Fn(sp.Sched, sp.UART), nil, def.Prio, stack, def.Slice)
	if err != nil {
		sp.UART.PutS("[spawn] task_create failed (MAX_TASKS reached)\n")
		return sched.NoTID, err
	}

	sp.UART.PutS("[spawn] id=")
	sp.UART.PutDec(id)
	sp.UART.PutS(" tid=")
	sp.UART.PutDec(uint32(tid))
	sp.UART.PutS("\n")
	return tid, nil
}

// ListTasks writes the available task ids and names to UART, matching
// task_list_print.
func (sp *Spawner) ListTasks() {
	sp.UART.PutS("\nAvailable task IDs:\n")
	for _, d := range sp.Defs {
		sp.UART.PutS("  ")
		sp.UART.PutDec(d.ID)
		sp.UART.PutS(" (")
		sp.UART.PutS(d.Name)
		sp.UART.PutS(")\n")
	}
}
