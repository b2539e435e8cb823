//go:build !qemu

package main

// maybeRunQemu is a no-op in the default build: -qemu integration requires
// the qemu build tag (see qemu.go), keeping golang.org/x/sys/unix's socket
// syscalls out of the default binary.
func maybeRunQemu() (ran bool, code int) {
	return false, 0
}
