// Package hostdiag reports the host facts cmd/schedsim prints under -diag:
// how many CPUs are actually available to this process, the kernel's clock
// tick granularity, and how long the host has been up. None of it feeds a
// scheduling decision -- sched never looks at the host it runs on -- it is
// purely informational, the simulation's analogue of a firmware image
// printing board info on the UART at boot.
package hostdiag

import (
	"fmt"
	"time"
)

// Info bundles the host facts printed by cmd/schedsim -diag.
type Info struct {
	AvailableCPUs    int
	ConfiguredCPUs   int
	ClockTicksPerSec int64
	BootTime         time.Time
}

// Collect gathers all of Info's fields, tolerating a failure in any one of
// them: a field whose getter fails is left at its zero value, without
// logging, rather than aborting the whole collection.
func Collect() Info {
	info := Info{
		AvailableCPUs: AvailableCPUCount(),
	}
	if n, err := ConfiguredCPUCount(); err == nil {
		info.ConfiguredCPUs = n
	}
	if tck, err := ClockTicksPerSec(); err == nil {
		info.ClockTicksPerSec = tck
	}
	if bt, err := HostBootTime(); err == nil {
		info.BootTime = bt
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf(
		"cpus=%d/%d clktck=%d uptime=%s",
		i.AvailableCPUs, i.ConfiguredCPUs, i.ClockTicksPerSec, time.Since(i.BootTime).Round(time.Second),
	)
}
