package simhw

import (
	"github.com/matthonolive/riscv-scheduler/sched"
)

// NewDispatcherTask builds the interactive dispatcher TaskFunc: it reads a
// task id typed over UART, one line at a time, and spawns it via sp, the Go
// analogue of dispatcher.c's dispatcher(). Polling uart_getc_nonblock in a
// SleepTicks(1) loop (rather than busy-waiting) is the original's own
// comment on itself: "don't busy-spin; also proves timer IRQ works."
func NewDispatcherTask(sp *Spawner) sched.TaskFunc {
	return func(any) {
		var buf [16]byte
		n := 0

		sp.UART.PutS("\nType a task ID and press Enter (e.g. 1, 2, 3)\n")
		sp.ListTasks()
		sp.UART.PutS("> ")

		for {
			c, ok := sp.UART.GetCNonBlock()
			if !ok {
				sp.Sched.SleepTicks(1)
				continue
			}

			if c == '\r' || c == '\n' {
				sp.UART.PutS("\n")
				if n > 0 {
					sp.SpawnID(parseUint32(buf[:n]))
				}
				n = 0
				sp.UART.PutS("> ")
				continue
			}

			if n < len(buf)-1 {
				buf[n] = c
				n++
				sp.UART.PutC(c) // local echo
			}
		}
	}
}

func parseUint32(s []byte) uint32 {
	var v uint32
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + uint32(c-'0')
	}
	return v
}
