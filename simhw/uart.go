package simhw

import (
	"bytes"
	"io"
	"sync"
	"time"

	vmi_internal "github.com/matthonolive/riscv-scheduler/internal"
)

// UART is a simulated 16550: a line-status/FIFO model over an io.Writer and
// an internal RX ring buffer, standing in for uart16550.c's MMIO register
// pokes. Safe for concurrent use by multiple tasks, which the real
// single-hart firmware never had to consider.
type UART struct {
	mu     sync.Mutex
	out    io.Writer
	rx     bytes.Buffer
	budget *vmi_internal.Credit
}

// NewUART wraps out (typically os.Stdout, or a bytes.Buffer in tests) as
// the transmit side of a simulated UART with no transmit rate limit.
func NewUART(out io.Writer) *UART {
	return &UART{out: out}
}

// NewUARTWithBaud is NewUART plus a transmit budget modelling the real
// 16550's fixed baud rate: at 8N1 framing each byte costs 10 bits, so a
// line running at baudRate bits/sec can source baudRate/10 bytes/sec.
// Without this a simulated console prints instantly regardless of the
// configured baud rate, which hides the back-pressure a slow line puts on
// a task that writes faster than the wire drains.
func NewUARTWithBaud(out io.Writer, baudRate int) *UART {
	bytesPerSec := baudRate / 10
	if bytesPerSec < 1 {
		bytesPerSec = 1
	}
	return &UART{out: out, budget: vmi_internal.NewCredit(bytesPerSec, bytesPerSec, time.Second)}
}

// PutC writes one byte, translating '\n' to "\r\n" the way uart_puts does
// -- a real terminal driver expects a carriage return before every
// linefeed. If a transmit budget is configured, PutC blocks until a byte
// of credit is available, the same back-pressure a real line imposes.
func (u *UART) PutC(c byte) {
	if u.budget != nil {
		u.budget.GetCredit(1, 1)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if c == '\n' {
		u.out.Write([]byte{'\r'})
	}
	u.out.Write([]byte{c})
}

// PutS writes a string byte by byte through PutC, the Go analogue of
// uart_puts.
func (u *UART) PutS(s string) {
	for i := 0; i < len(s); i++ {
		u.PutC(s[i])
	}
}

const hexDigits = "0123456789abcdef"

// PutHex writes v as "0xNNNNNNNN", matching uart_puthex's fixed 8-digit
// width.
func (u *UART) PutHex(v uint32) {
	u.PutS("0x")
	for i := 7; i >= 0; i-- {
		u.PutC(hexDigits[(v>>uint(i*4))&0xF])
	}
}

// PutDec writes v in decimal with no leading zeros, matching uart_putdec.
func (u *UART) PutDec(v uint32) {
	if v == 0 {
		u.PutC('0')
		return
	}
	var buf [10]byte
	n := 0
	for v > 0 && n < len(buf) {
		buf[n] = '0' + byte(v%10)
		v /= 10
		n++
	}
	for i := n - 1; i >= 0; i-- {
		u.PutC(buf[i])
	}
}

// Feed appends bytes to the simulated receive FIFO, the test/harness
// equivalent of a real UART latching RHR from an external source (a
// keyboard, a pty). cmd/schedsim's interactive mode calls this from a
// goroutine reading stdin.
func (u *UART) Feed(b []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rx.Write(b)
}

// GetCNonBlock reports whether a received byte is available, matching
// uart_getc_nonblock's LSR_DR poll: ok is false if the RX FIFO is empty,
// never blocking the caller.
func (u *UART) GetCNonBlock() (c byte, ok bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	b, err := u.rx.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

// Stop releases the transmit budget's replenish goroutine, if one was
// started by NewUARTWithBaud. A no-op on a UART with no configured baud.
func (u *UART) Stop() {
	if u.budget != nil {
		u.budget.StopReplenishWait()
	}
}
