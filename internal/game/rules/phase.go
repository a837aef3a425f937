package rules

import (
	"fmt"
	"strings"
)

// Phase is the top-level state of a round.
type Phase int

const (
	PhaseIntermission Phase = iota
	PhasePositioning
	PhaseRunning
)

var phaseNames = map[Phase]string{
	PhaseIntermission: "INTERMISSION",
	PhasePositioning:  "POSITIONING",
	PhaseRunning:      "RUNNING",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// ParsePhase is the inverse of String. Matching is case-insensitive.
func ParsePhase(s string) (Phase, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for p, name := range phaseNames {
		if name == want {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// phaseCycle is the only legal order of phases. Running wraps back to Intermission.
var phaseCycle = []Phase{PhaseIntermission, PhasePositioning, PhaseRunning}

// Next returns the phase that follows p in the cycle.
func (p Phase) Next() Phase {
	for i, candidate := range phaseCycle {
		if candidate == p {
			return phaseCycle[(i+1)%len(phaseCycle)]
		}
	}
	return PhaseIntermission
}

// Transition checks that moving from 'from' to 'to' follows the cycle
// and returns a phase error naming the expected phase otherwise.
func Transition(from, to Phase) error {
	if from.Next() == to {
		return nil
	}
	want := PhaseIntermission
	for _, candidate := range phaseCycle {
		if candidate.Next() == to {
			want = candidate
			break
		}
	}
	return Phasef("cannot enter %s from %s (requires %s)", to, from, want)
}

// NextRunner returns the player after current in the circular order.
// An unknown current player hands the role to the first player.
func NextRunner(order []string, current string) string {
	if len(order) == 0 {
		return ""
	}
	for i, id := range order {
		if id == current {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
