// Count available host CPUs, reported by cmd/schedsim -diag.

//go:build linux

package hostdiag

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// AvailableCPUCount returns the number of CPUs this process may actually run
// on (sched affinity), falling back to runtime.NumCPU() on error. This has
// nothing to do with the single-hart scheduler under test; it is purely a
// diagnostic, surfaced by Collect() and printed by cmd/schedsim's -diag flag.
func AvailableCPUCount() int {
	cpuSet := unix.CPUSet{}
	err := unix.SchedGetaffinity(os.Getpid(), &cpuSet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unix.SchedGetaffinity: %v\n", err)
		return runtime.NumCPU()
	}
	count := 0
	for _, cpuMask := range cpuSet {
		for cpuMask != 0 {
			count++
			cpuMask &= (cpuMask - 1)
		}
	}
	if count > runtime.NumCPU() {
		count = runtime.NumCPU()
	}
	return count
}
