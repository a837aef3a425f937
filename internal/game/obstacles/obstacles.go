// Package obstacles holds roadblocks, curses and challenges, the rules for
// placing them, and the blocking query used by scoring.
package obstacles

import (
	"context"
	"time"
)

// Roadblock blocks scoring at a node.
type Roadblock struct {
	ID          string     `json:"id"`
	GameID      string     `json:"gameId"`
	NodeName    string     `json:"nodeName"`
	PlacedBy    string     `json:"placedBy"`
	IsHidden    bool       `json:"isHidden"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the roadblock's time box has elapsed at now.
func (r Roadblock) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Curse blocks scoring of the traversal between two nodes, in either direction.
type Curse struct {
	ID          string `json:"id"`
	GameID      string `json:"gameId"`
	StartNode   string `json:"startNode"`
	EndNode     string `json:"endNode"`
	PlacedBy    string `json:"placedBy"`
	Description string `json:"description"`
}

// Matches reports whether the curse covers the undirected pair (a, b).
func (c Curse) Matches(a, b string) bool {
	return (c.StartNode == a && c.EndNode == b) || (c.StartNode == b && c.EndNode == a)
}

// Challenge is a pending battle at a node, blocking scoring there like a roadblock.
type Challenge struct {
	ID          string `json:"id"`
	GameID      string `json:"gameId"`
	NodeName    string `json:"nodeName"`
	PlacedBy    string `json:"placedBy"`
	Description string `json:"description"`
}

// Set is every obstacle currently active in one game.
type Set struct {
	Roadblocks []Roadblock `json:"roadblocks"`
	Curses     []Curse     `json:"curses"`
	Challenges []Challenge `json:"challenges"`
}

// Empty reports whether the set holds nothing.
func (s Set) Empty() bool {
	return len(s.Roadblocks) == 0 && len(s.Curses) == 0 && len(s.Challenges) == 0
}

// VisibleToRunner drops hidden roadblocks.
func (s Set) VisibleToRunner() Set {
	out := Set{Curses: s.Curses, Challenges: s.Challenges}
	for _, r := range s.Roadblocks {
		if !r.IsHidden {
			out.Roadblocks = append(out.Roadblocks, r)
		}
	}
	return out
}

// Blocking returns the obstacles preventing the runner from scoring node
// after arriving from prev. prev is empty for the first node of a run.
func (s Set) Blocking(prev, node string) Set {
	var out Set
	for _, r := range s.Roadblocks {
		if r.NodeName == node {
			out.Roadblocks = append(out.Roadblocks, r)
		}
	}
	for _, c := range s.Challenges {
		if c.NodeName == node {
			out.Challenges = append(out.Challenges, c)
		}
	}
	if prev != "" {
		for _, c := range s.Curses {
			if c.Matches(prev, node) {
				out.Curses = append(out.Curses, c)
			}
		}
	}
	return out
}

// Store is the per-game obstacle persistence the registry needs. A store
// value is bound to one game and one transaction.
type Store interface {
	Roadblocks(ctx context.Context) ([]Roadblock, error)
	InsertRoadblock(ctx context.Context, r Roadblock) error
	DeleteRoadblocks(ctx context.Context, ids ...string) error

	Curses(ctx context.Context) ([]Curse, error)
	InsertCurse(ctx context.Context, c Curse) error
	DeleteCurse(ctx context.Context, id string) (bool, error)

	Challenges(ctx context.Context) ([]Challenge, error)
	InsertChallenge(ctx context.Context, c Challenge) error
	DeleteChallenge(ctx context.Context, id string) (bool, error)

	// ClearObstacles deletes every roadblock, curse and challenge of the game.
	ClearObstacles(ctx context.Context) error
}
