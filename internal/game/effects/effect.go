// Package effects tracks the single-use modifiers granted by utility and
// battle cards.
package effects

import (
	"fmt"
	"time"
)

// Type is the closed set of effect kinds.
type Type string

const (
	// DiscardTwo is a mandatory pending action: the seekers must discard two cards.
	DiscardTwo Type = "discard_two"
	// Misdirection lets the next roadblock go on a node adjacent to the seeker.
	Misdirection Type = "misdirection"
	// SeeDouble lets the next curse placement create a second curse.
	SeeDouble Type = "see_double"
	// HiddenRoadblock conceals the next roadblock from the runner.
	HiddenRoadblock Type = "hidden_roadblock"
	// GlobalPlacement lifts the location rule for the next roadblock or curse.
	GlobalPlacement Type = "global_placement"
	// RunnerRevealed is informational and carries an expiry.
	RunnerRevealed Type = "runner_revealed"
)

var descriptions = map[Type]string{
	DiscardTwo:      "Discard two cards from your hand",
	Misdirection:    "Next roadblock may be placed on an adjacent node",
	SeeDouble:       "Next curse may be placed twice",
	HiddenRoadblock: "Next roadblock is hidden from the runner",
	GlobalPlacement: "Next roadblock or curse may be placed anywhere",
	RunnerRevealed:  "Runner location revealed",
}

// Valid reports whether t is a known effect type.
func (t Type) Valid() bool {
	_, ok := descriptions[t]
	return ok
}

// Required reports whether the effect is a mandatory pending action.
func (t Type) Required() bool {
	return t == DiscardTwo
}

// Effect is one entry in the stack.
type Effect struct {
	Type        Type       `json:"type"`
	Description string     `json:"description"`
	Expiry      *time.Time `json:"expiry,omitempty"`
}

// New returns an effect with the default description for t.
func New(t Type) Effect {
	return Effect{Type: t, Description: descriptions[t]}
}

// NewExpiring returns an informational effect that goes stale at expiry.
func NewExpiring(t Type, description string, expiry time.Time) Effect {
	if description == "" {
		description = descriptions[t]
	}
	exp := expiry
	return Effect{Type: t, Description: description, Expiry: &exp}
}

// Expired reports whether the effect has an expiry at or before now.
// Nothing in the engine removes expired effects; readers use this to hide them.
func (e Effect) Expired(now time.Time) bool {
	return e.Expiry != nil && !now.Before(*e.Expiry)
}

func (e Effect) String() string {
	return fmt.Sprintf("%s(%s)", e.Type, e.Description)
}
