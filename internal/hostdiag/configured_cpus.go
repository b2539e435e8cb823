package hostdiag

import (
	"github.com/tklauser/numcpus"
)

// ConfiguredCPUCount returns the number of CPUs configured in the system
// (as opposed to online/available), per /sys/devices/system/cpu. Reported
// alongside AvailableCPUCount by Collect(), for cmd/schedsim's -diag flag.
func ConfiguredCPUCount() (int, error) {
	n, err := numcpus.GetConfigured()
	return int(n), err
}
