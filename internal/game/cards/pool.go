package cards

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// ErrEmptyPool is returned when drawing from a pool with no definitions.
var ErrEmptyPool = errors.New("card pool is empty")

// Pool is the set of card definitions a game draws from. Immutable.
type Pool struct {
	name   string
	defs   []Definition
	byName map[string]int
}

// NewPool normalizes and indexes the definitions.
func NewPool(name string, defs []Definition) (*Pool, error) {
	p := &Pool{
		name:   name,
		defs:   make([]Definition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		norm, err := d.Normalize()
		if err != nil {
			return nil, fmt.Errorf("card set %s: %w", name, err)
		}
		key := strings.ToLower(norm.Name)
		if _, dup := p.byName[key]; dup {
			return nil, fmt.Errorf("card set %s: duplicate card %q", name, norm.Name)
		}
		p.byName[key] = len(p.defs)
		p.defs = append(p.defs, norm)
	}
	return p, nil
}

// Name returns the card set name.
func (p *Pool) Name() string { return p.name }

// Len returns the number of definitions.
func (p *Pool) Len() int { return len(p.defs) }

// Definitions returns a copy of the definitions.
func (p *Pool) Definitions() []Definition {
	out := make([]Definition, len(p.defs))
	copy(out, p.defs)
	return out
}

// ByType groups definitions by card type.
func (p *Pool) ByType() map[Type][]Definition {
	out := make(map[Type][]Definition)
	for _, d := range p.defs {
		out[d.Type] = append(out[d.Type], d)
	}
	return out
}

// Lookup finds a definition by case-insensitive name.
func (p *Pool) Lookup(name string) (Definition, bool) {
	idx, ok := p.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Definition{}, false
	}
	return p.defs[idx], true
}

// Draw deals one uniformly random card.
func (p *Pool) Draw(rng *rand.Rand) (Card, error) {
	if len(p.defs) == 0 {
		return Card{}, ErrEmptyPool
	}
	return p.defs[rng.IntN(len(p.defs))].Instantiate(), nil
}

// DrawN deals n cards.
func (p *Pool) DrawN(rng *rand.Rand, n int) ([]Card, error) {
	out := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		c, err := p.Draw(rng)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
