package sched

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/huandu/go-clone"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxTasks != ConfigMaxTasksDefault || cfg.Policy != Hybrid {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	words, err := cfg.IdleStackWords()
	if err != nil {
		t.Fatal(err)
	}
	if words != 256 { // 1KiB / 4
		t.Errorf("IdleStackWords() = %d, want 256", words)
	}
}

func TestLoadConfigFromBytes(t *testing.T) {
	buf := []byte(`
max_tasks: 12
max_prio: 4
policy: preempt
tick_cycles: 5000
idle_stack_size: 2KiB
max_harts: 1
`)
	cfg, err := LoadConfig("", buf)
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		MaxTasks:      12,
		MaxPrio:       4,
		Policy:        Preempt,
		TickCycles:    5000,
		IdleStackSize: "2KiB",
		MaxHarts:      1,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigRejectsBadPolicy(t *testing.T) {
	_, err := LoadConfig("", []byte("policy: round-robin-ish\n"))
	if err == nil {
		t.Fatal("expected an error for an unrecognised policy")
	}
}

// TestCloneBeforeMutate exercises the huandu/go-clone pattern used to
// snapshot a Config before mutating it in a test, so the original can
// still be used as a baseline for comparison.
func TestCloneBeforeMutate(t *testing.T) {
	orig := DefaultConfig()
	mutated := clone.Clone(orig).(*Config)
	mutated.MaxTasks = 30

	if orig.MaxTasks == mutated.MaxTasks {
		t.Fatal("mutating the clone must not affect the original")
	}
	if diff := cmp.Diff(DefaultConfig(), orig); diff != "" {
		t.Errorf("original Config changed (-want +got):\n%s", diff)
	}
}
