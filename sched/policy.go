package sched

import "fmt"

// Policy selects how pickNext chooses the next runnable task among those
// with their bit set in a ready[] mask.
type Policy int

const (
	// RR treats every task as priority 0 and rotates among the ready set.
	RR Policy = iota
	// Preempt scans priorities low-to-high and always runs the
	// lowest-numbered ready tid at the first non-empty priority; no
	// rotation, no fairness across equal-priority tasks.
	Preempt
	// Hybrid scans priorities low-to-high like Preempt, but rotates among
	// equal-priority ready tasks the way RR does.
	Hybrid
)

func (p Policy) String() string {
	switch p {
	case RR:
		return "rr"
	case Preempt:
		return "preempt"
	case Hybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func (p Policy) MarshalYAML() (any, error) {
	return p.String(), nil
}

func (p *Policy) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePolicy parses the same string forms UnmarshalYAML accepts, for
// callers outside a YAML document -- cmd/schedsim's -policy flag, in
// particular.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "rr":
		return RR, nil
	case "preempt":
		return Preempt, nil
	case "hybrid":
		return Hybrid, nil
	default:
		return 0, fmt.Errorf("sched: invalid policy %q, want one of rr, preempt, hybrid", s)
	}
}
