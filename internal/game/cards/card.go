// Package cards defines card definitions, dealt card instances, the shared
// seeker hand and the discard pile.
package cards

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type is the broad card category.
type Type string

const (
	TypeBattle    Type = "battle"
	TypeRoadblock Type = "roadblock"
	TypeCurse     Type = "curse"
	TypeUtility   Type = "utility"
)

// ParseType validates a card type string.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeBattle, TypeRoadblock, TypeCurse, TypeUtility:
		return t, nil
	default:
		return "", fmt.Errorf("unknown card type %q", s)
	}
}

// UtilityKind is the closed set of utility card behaviours.
type UtilityKind string

const (
	UtilityNone UtilityKind = ""

	// UtilityDrawDiscard draws two cards then forces a discard of two.
	UtilityDrawDiscard  UtilityKind = "draw_discard"
	UtilityMisdirection UtilityKind = "misdirection"
	UtilitySeeDouble    UtilityKind = "see_double"

	// UtilityHandRefresh replaces the whole hand with fresh draws.
	UtilityHandRefresh     UtilityKind = "hand_refresh"
	UtilityHiddenPlacement UtilityKind = "hidden_placement"

	// UtilityTutor fetches a named card from the pool and drops a random one.
	UtilityTutor           UtilityKind = "tutor"
	UtilityGlobalPlacement UtilityKind = "global_placement"

	// UtilityBonusDraw is the behaviour of any utility card not recognised by name.
	UtilityBonusDraw UtilityKind = "bonus_draw"
)

// UtilityKinds lists every behaviour the engine must dispatch.
var UtilityKinds = []UtilityKind{
	UtilityDrawDiscard,
	UtilityMisdirection,
	UtilitySeeDouble,
	UtilityHandRefresh,
	UtilityHiddenPlacement,
	UtilityTutor,
	UtilityGlobalPlacement,
	UtilityBonusDraw,
}

// ParseUtility validates an explicit utility kind.
func ParseUtility(s string) (UtilityKind, error) {
	want := UtilityKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range UtilityKinds {
		if k == want {
			return k, nil
		}
	}
	return UtilityNone, fmt.Errorf("unknown utility kind %q", s)
}

// knownUtilityNames maps the stock card names to their behaviour.
var knownUtilityNames = map[string]UtilityKind{
	"double down":       UtilityDrawDiscard,
	"misdirection":      UtilityMisdirection,
	"see double":        UtilitySeeDouble,
	"fresh start":       UtilityHandRefresh,
	"smoke and mirrors": UtilityHiddenPlacement,
	"scavenger hunt":    UtilityTutor,
	"master key":        UtilityGlobalPlacement,
}

// UtilityForName resolves the behaviour of a utility card from its name.
func UtilityForName(name string) UtilityKind {
	if k, ok := knownUtilityNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k
	}
	return UtilityBonusDraw
}

// Definition is a card as configured in a card set.
type Definition struct {
	Name        string      `yaml:"name" json:"name"`
	Type        Type        `yaml:"type" json:"type"`
	Description string      `yaml:"description" json:"description"`
	Utility     UtilityKind `yaml:"utility,omitempty" json:"utility,omitempty"`
}

// Normalize fills in the utility kind from the name when unset.
func (d Definition) Normalize() (Definition, error) {
	t, err := ParseType(string(d.Type))
	if err != nil {
		return d, fmt.Errorf("card %q: %w", d.Name, err)
	}
	d.Type = t
	if strings.TrimSpace(d.Name) == "" {
		return d, fmt.Errorf("card with empty name")
	}
	if d.Type != TypeUtility {
		d.Utility = UtilityNone
		return d, nil
	}
	if d.Utility == UtilityNone {
		d.Utility = UtilityForName(d.Name)
		return d, nil
	}
	k, err := ParseUtility(string(d.Utility))
	if err != nil {
		return d, fmt.Errorf("card %q: %w", d.Name, err)
	}
	d.Utility = k
	return d, nil
}

// Card is a dealt instance. Each deal gets a fresh ID.
type Card struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        Type        `json:"type"`
	Description string      `json:"description"`
	Utility     UtilityKind `json:"utility,omitempty"`
}

// Instantiate deals a new card from the definition.
func (d Definition) Instantiate() Card {
	return Card{
		ID:          uuid.NewString(),
		Name:        d.Name,
		Type:        d.Type,
		Description: d.Description,
		Utility:     d.Utility,
	}
}

// DiscardEntry records a card leaving the hand through play or discard.
type DiscardEntry struct {
	Card   Card      `json:"card"`
	UsedBy string    `json:"usedBy"`
	UsedAt time.Time `json:"usedAt"`
	Target string    `json:"target,omitempty"`
	Nodes  []string  `json:"nodes,omitempty"`

	// Dropped are hand cards thrown away by this play (hand refresh, tutor).
	Dropped []Card `json:"dropped,omitempty"`
}
