// Package repository provides game.Store implementations: an in-process
// store for tests and single-node deployments, and a PostgreSQL store.
package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/chasegame/chase-server/internal/game"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/obstacles"
)

// MemoryStore keeps games in memory. Transactions work on a copy of the
// game record that replaces the original only when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string]*memoryRecord
}

type memoryRecord struct {
	state      *game.GameState
	roadblocks []obstacles.Roadblock
	curses     []obstacles.Curse
	challenges []obstacles.Challenge
}

func (r *memoryRecord) clone() *memoryRecord {
	out := &memoryRecord{
		roadblocks: slices.Clone(r.roadblocks),
		curses:     slices.Clone(r.curses),
		challenges: slices.Clone(r.challenges),
	}
	if r.state != nil {
		out.state = r.state.Clone()
	}
	return out
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]*memoryRecord)}
}

// CreateGame stores a new game record.
func (s *MemoryStore) CreateGame(_ context.Context, st *game.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[st.GameID]; ok {
		return game.ErrGameExists
	}
	s.games[st.GameID] = &memoryRecord{state: st.Clone()}
	return nil
}

// InTx runs fn against a working copy of the game and commits it when fn
// returns nil. Transactions are serialized store-wide.
func (s *MemoryStore) InTx(ctx context.Context, gameID string, fn func(game.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.games[gameID]
	work := &memoryRecord{}
	if ok {
		work = rec.clone()
	}
	tx := &memoryTx{rec: work}
	if err := fn(tx); err != nil {
		return err
	}
	if ok {
		s.games[gameID] = tx.rec
	}
	return nil
}

// Snapshot returns a copy of the stored state, for inspection in tests and tooling.
func (s *MemoryStore) Snapshot(gameID string) (*game.GameState, obstacles.Set, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.games[gameID]
	if !ok {
		return nil, obstacles.Set{}, false
	}
	c := rec.clone()
	return c.state, obstacles.Set{Roadblocks: c.roadblocks, Curses: c.curses, Challenges: c.challenges}, true
}

type memoryTx struct {
	rec *memoryRecord
}

func (t *memoryTx) State(_ context.Context) (*game.GameState, error) {
	if t.rec.state == nil {
		return nil, game.ErrGameNotFound
	}
	return t.rec.state.Clone(), nil
}

func (t *memoryTx) SaveState(_ context.Context, st *game.GameState) error {
	if t.rec.state == nil {
		return game.ErrGameNotFound
	}
	t.rec.state = st.Clone()
	return nil
}

func (t *memoryTx) SaveEffects(_ context.Context, fx effects.Stack) error {
	if t.rec.state == nil {
		return game.ErrGameNotFound
	}
	t.rec.state.Effects = fx.Clone()
	return nil
}

func (t *memoryTx) Savepoint(_ context.Context, fn func(game.Tx) error) error {
	inner := &memoryTx{rec: t.rec.clone()}
	if err := fn(inner); err != nil {
		return err
	}
	t.rec = inner.rec
	return nil
}

func (t *memoryTx) Roadblocks(_ context.Context) ([]obstacles.Roadblock, error) {
	return slices.Clone(t.rec.roadblocks), nil
}

func (t *memoryTx) InsertRoadblock(_ context.Context, r obstacles.Roadblock) error {
	t.rec.roadblocks = append(t.rec.roadblocks, r)
	return nil
}

func (t *memoryTx) DeleteRoadblocks(_ context.Context, ids ...string) error {
	t.rec.roadblocks = slices.DeleteFunc(t.rec.roadblocks, func(r obstacles.Roadblock) bool {
		return slices.Contains(ids, r.ID)
	})
	return nil
}

func (t *memoryTx) Curses(_ context.Context) ([]obstacles.Curse, error) {
	return slices.Clone(t.rec.curses), nil
}

func (t *memoryTx) InsertCurse(_ context.Context, c obstacles.Curse) error {
	t.rec.curses = append(t.rec.curses, c)
	return nil
}

func (t *memoryTx) DeleteCurse(_ context.Context, id string) (bool, error) {
	n := len(t.rec.curses)
	t.rec.curses = slices.DeleteFunc(t.rec.curses, func(c obstacles.Curse) bool { return c.ID == id })
	return len(t.rec.curses) != n, nil
}

func (t *memoryTx) Challenges(_ context.Context) ([]obstacles.Challenge, error) {
	return slices.Clone(t.rec.challenges), nil
}

func (t *memoryTx) InsertChallenge(_ context.Context, c obstacles.Challenge) error {
	t.rec.challenges = append(t.rec.challenges, c)
	return nil
}

func (t *memoryTx) DeleteChallenge(_ context.Context, id string) (bool, error) {
	n := len(t.rec.challenges)
	t.rec.challenges = slices.DeleteFunc(t.rec.challenges, func(c obstacles.Challenge) bool { return c.ID == id })
	return len(t.rec.challenges) != n, nil
}

func (t *memoryTx) ClearObstacles(_ context.Context) error {
	t.rec.roadblocks = nil
	t.rec.curses = nil
	t.rec.challenges = nil
	return nil
}

var (
	_ game.Store = (*MemoryStore)(nil)
	_ game.Tx    = (*memoryTx)(nil)
)
