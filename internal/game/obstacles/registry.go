package obstacles

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Registry reads and writes the obstacles of one game through a Store.
// Every read purges expired roadblocks first.
type Registry struct {
	store  Store
	gameID string
	now    func() time.Time
}

// NewRegistry binds a registry to a transaction-scoped store.
func NewRegistry(store Store, gameID string, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{store: store, gameID: gameID, now: now}
}

// PurgeExpired deletes roadblocks whose time box has elapsed and returns the live ones.
func (r *Registry) PurgeExpired(ctx context.Context) ([]Roadblock, error) {
	all, err := r.store.Roadblocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roadblocks: %w", err)
	}
	now := r.now()
	live := make([]Roadblock, 0, len(all))
	var expired []string
	for _, rb := range all {
		if rb.Expired(now) {
			expired = append(expired, rb.ID)
			continue
		}
		live = append(live, rb)
	}
	if len(expired) > 0 {
		if err := r.store.DeleteRoadblocks(ctx, expired...); err != nil {
			return nil, fmt.Errorf("purge expired roadblocks: %w", err)
		}
	}
	return live, nil
}

// Active returns every live obstacle.
func (r *Registry) Active(ctx context.Context) (Set, error) {
	roadblocks, err := r.PurgeExpired(ctx)
	if err != nil {
		return Set{}, err
	}
	curses, err := r.store.Curses(ctx)
	if err != nil {
		return Set{}, fmt.Errorf("list curses: %w", err)
	}
	challenges, err := r.store.Challenges(ctx)
	if err != nil {
		return Set{}, fmt.Errorf("list challenges: %w", err)
	}
	return Set{Roadblocks: roadblocks, Curses: curses, Challenges: challenges}, nil
}

// Blocking returns the obstacles holding the runner at node after prev.
func (r *Registry) Blocking(ctx context.Context, prev, node string) (Set, error) {
	active, err := r.Active(ctx)
	if err != nil {
		return Set{}, err
	}
	return active.Blocking(prev, node), nil
}

// AddRoadblock inserts a roadblock. ttl <= 0 means no expiry.
func (r *Registry) AddRoadblock(ctx context.Context, node, placedBy string, hidden bool, ttl time.Duration, description string) (Roadblock, error) {
	rb := Roadblock{
		ID:          uuid.NewString(),
		GameID:      r.gameID,
		NodeName:    node,
		PlacedBy:    placedBy,
		IsHidden:    hidden,
		Description: description,
	}
	if ttl > 0 {
		exp := r.now().Add(ttl)
		rb.ExpiresAt = &exp
	}
	if err := r.store.InsertRoadblock(ctx, rb); err != nil {
		return Roadblock{}, fmt.Errorf("insert roadblock: %w", err)
	}
	return rb, nil
}

// AddCurse inserts a curse on the pair (start, end).
func (r *Registry) AddCurse(ctx context.Context, start, end, placedBy, description string) (Curse, error) {
	c := Curse{
		ID:          uuid.NewString(),
		GameID:      r.gameID,
		StartNode:   start,
		EndNode:     end,
		PlacedBy:    placedBy,
		Description: description,
	}
	if err := r.store.InsertCurse(ctx, c); err != nil {
		return Curse{}, fmt.Errorf("insert curse: %w", err)
	}
	return c, nil
}

// AddChallenge inserts a challenge at node.
func (r *Registry) AddChallenge(ctx context.Context, node, placedBy, description string) (Challenge, error) {
	c := Challenge{
		ID:          uuid.NewString(),
		GameID:      r.gameID,
		NodeName:    node,
		PlacedBy:    placedBy,
		Description: description,
	}
	if err := r.store.InsertChallenge(ctx, c); err != nil {
		return Challenge{}, fmt.Errorf("insert challenge: %w", err)
	}
	return c, nil
}

// ClearRoadblocksAt deletes every live roadblock at node, hidden or not,
// and returns how many were removed.
func (r *Registry) ClearRoadblocksAt(ctx context.Context, node string) (int, error) {
	live, err := r.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, rb := range live {
		if rb.NodeName == node {
			ids = append(ids, rb.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.store.DeleteRoadblocks(ctx, ids...); err != nil {
		return 0, fmt.Errorf("delete roadblocks: %w", err)
	}
	return len(ids), nil
}

// ClearCurse deletes a curse by id.
func (r *Registry) ClearCurse(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.DeleteCurse(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete curse: %w", err)
	}
	return ok, nil
}

// ClearChallenge deletes a challenge by id.
func (r *Registry) ClearChallenge(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.DeleteChallenge(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete challenge: %w", err)
	}
	return ok, nil
}

// ClearAll removes every obstacle of the game.
func (r *Registry) ClearAll(ctx context.Context) error {
	if err := r.store.ClearObstacles(ctx); err != nil {
		return fmt.Errorf("clear obstacles: %w", err)
	}
	return nil
}
