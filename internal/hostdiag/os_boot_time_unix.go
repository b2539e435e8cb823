//go:build unix

package hostdiag

import (
	"fmt"
	"time"

	"github.com/mackerelio/go-osstat/uptime"
)

// HostBootTime reports when the host booted. Printed by `schedsim -diag`
// next to the simulated scheduler's own tick count, purely as an operator
// sanity check that the process is running on the host it thinks it is.
func HostBootTime() (time.Time, error) {
	up, err := uptime.Get()
	if err != nil {
		return time.Now(), fmt.Errorf("uptime.Get(): %v", err)
	}
	return time.Now().Add(-up), nil
}
