// Count available host CPUs, reported by cmd/schedsim -diag.

//go:build !linux

package hostdiag

import (
	"runtime"
)

func AvailableCPUCount() int {
	return runtime.NumCPU()
}
