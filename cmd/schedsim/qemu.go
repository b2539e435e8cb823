//go:build qemu

package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// qemuArg names the chardev unix-domain socket of a running
// `qemu-system-riscv32 -M virt -serial unix:<path>,server` instance.
// Wiring this up talks to the real firmware image over the same UART0 the
// original program drives, instead of simhw's in-process simulation. It is
// build-tag gated: the non-qemu build doesn't link golang.org/x/sys/unix
// for this at all, since the in-process simulation never touches real
// MMIO or a socket.
var qemuArg = flag.String(
	"qemu",
	"",
	`Unix-domain socket of a running qemu-system-riscv32 chardev; if set, bridge stdin/stdout to it instead of running the in-process simulation`,
)

// maybeRunQemu checks qemuArg after flag.Parse and, if set, takes over as
// a terminal bridge instead of the in-process simulation. ran is false if
// -qemu was not given, in which case run() proceeds as normal.
func maybeRunQemu() (ran bool, code int) {
	if *qemuArg == "" {
		return false, 0
	}
	if err := runQemuBridge(*qemuArg); err != nil {
		fmt.Fprintf(os.Stderr, "qemu bridge: %v\n", err)
		return true, 1
	}
	return true, 0
}

// runQemuBridge relays bytes between os.Stdin/os.Stdout and the QEMU
// chardev socket until the connection drops. It performs no scheduling
// itself -- the real firmware image does that -- this is purely a
// terminal bridge, the -qemu analogue of simhw.UART's in-process loop.
func runQemuBridge(sockPath string) error {
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		return fmt.Errorf("dialing qemu chardev %q: %w", sockPath, err)
	}
	defer conn.Close()

	if uc, ok := conn.(*net.UnixConn); ok {
		if f, err := uc.File(); err == nil {
			defer f.Close()
			// Nonblocking so the two copy loops below don't wedge each
			// other while sharing the same underlying fd.
			unix.SetNonblock(int(f.Fd()), true)
		}
	}

	errCh := make(chan error, 2)
	go func() {
		_, err := bufio.NewReader(os.Stdin).WriteTo(conn)
		errCh <- err
	}()
	go func() {
		_, err := bufio.NewWriter(os.Stdout).ReadFrom(conn)
		errCh <- err
	}()
	return <-errCh
}
