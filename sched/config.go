// Configuration for the scheduler core, loaded once by the CLI harness and
// passed into New. Follows the shape of the teacher's VmiConfig/LoadConfig:
// a single YAML document, decoded with gopkg.in/yaml.v3, with one
// human-readable size field parsed via github.com/docker/go-units the way
// stdout_metrics_queue.go parses batch_target_size.

package sched

import (
	"fmt"
	"os"

	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

const (
	ConfigMaxTasksDefault       = 16
	ConfigMaxPrioDefault        = 8
	ConfigTickCyclesDefault     = 10000
	ConfigIdleStackSizeDefault  = "1KiB"
	ConfigMaxHartsDefault       = 1

	// MaxTasksLimit caps MaxTasks so a ready-set fits in a uint32 bitmask.
	MaxTasksLimit = 32
	// MinStackWords is the minimum stack size TaskCreate accepts: room for
	// a TrapFrame plus a small safety margin.
	MinStackWords = 64
)

// Config is the YAML-decodable configuration of a Scheduler.
type Config struct {
	// MaxTasks is the fixed task table capacity, 1..32.
	MaxTasks int `yaml:"max_tasks"`
	// MaxPrio is the number of priority levels, >= 1. Priority 0 is
	// highest; values are capped to MaxPrio-1 on creation.
	MaxPrio int `yaml:"max_prio"`
	// Policy selects RR, Preempt or Hybrid.
	Policy Policy `yaml:"policy"`
	// TickCycles is the timer reload interval, in reference cycles. It is
	// opaque to the scheduler core itself; simhw's timer driver is the
	// only consumer.
	TickCycles uint32 `yaml:"tick_cycles"`
	// IdleStackSize is a human-readable size ("1KiB", "256B", ...) for the
	// idle task's stack, parsed with units.RAMInBytes. IdleStackWords divides
	// it by 4 (words are uint32 on this 32-bit target).
	IdleStackSize string `yaml:"idle_stack_size"`
	// MaxHarts must be 1: multi-hart SMP is refused at New (Open
	// Question #2 in SPEC_FULL.md).
	MaxHarts int `yaml:"max_harts"`
}

// DefaultConfig returns a Config with the reference firmware's defaults
// (see original_source/Old_Schedulers/rvsched/app/main.c: HYBRID policy,
// 10000-cycle tick, 256-word/1KiB stacks).
func DefaultConfig() *Config {
	return &Config{
		MaxTasks:      ConfigMaxTasksDefault,
		MaxPrio:       ConfigMaxPrioDefault,
		Policy:        Hybrid,
		TickCycles:    ConfigTickCyclesDefault,
		IdleStackSize: ConfigIdleStackSizeDefault,
		MaxHarts:      ConfigMaxHartsDefault,
	}
}

// IdleStackWords returns IdleStackSize parsed into a uint32 word count.
func (c *Config) IdleStackWords() (int, error) {
	nBytes, err := units.RAMInBytes(c.IdleStackSize)
	if err != nil {
		return 0, fmt.Errorf("sched: invalid idle_stack_size %q: %w", c.IdleStackSize, err)
	}
	return int(nBytes / 4), nil
}

// LoadConfig reads and decodes a Config from cfgFile. If buf is non-nil, it
// is decoded directly instead of reading cfgFile (used by tests to avoid
// touching the filesystem, the way config_test.go exercises LoadConfig).
// Unset fields keep DefaultConfig's values.
func LoadConfig(cfgFile string, buf []byte) (*Config, error) {
	cfg := DefaultConfig()

	if buf == nil {
		if cfgFile == "" {
			return cfg, nil
		}
		var err error
		buf, err = os.ReadFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("sched: LoadConfig(%q): %w", cfgFile, err)
		}
	}

	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("sched: LoadConfig(%q): %w", cfgFile, err)
	}

	return cfg, nil
}
