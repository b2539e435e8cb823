//go:build unix

package hostdiag

import (
	"github.com/tklauser/go-sysconf"
)

// ClockTicksPerSec returns the host's jiffy rate (sysconf(_SC_CLK_TCK)),
// reported by Collect() as part of cmd/schedsim -diag's host summary.
func ClockTicksPerSec() (int64, error) {
	return sysconf.Sysconf(sysconf.SC_CLK_TCK)
}
