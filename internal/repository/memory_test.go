package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chasegame/chase-server/internal/game"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/obstacles"
	"github.com/chasegame/chase-server/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(id string) *game.GameState {
	return &game.GameState{
		GameID:          id,
		MapName:         "test",
		CardSet:         "base",
		Phase:           rules.PhaseIntermission,
		PlayerOrder:     []string{"alice", "bob"},
		CurrentRunnerID: "alice",
		RunnerNode:      "A",
		SeekerNode:      "A",
		UpdatedAt:       time.Unix(0, 0),
	}
}

func TestMemoryStoreCreateGame(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateGame(ctx, newState("g1")))
	assert.ErrorIs(t, s.CreateGame(ctx, newState("g1")), game.ErrGameExists)

	st, _, ok := s.Snapshot("g1")
	require.True(t, ok)
	assert.Equal(t, "alice", st.CurrentRunnerID)
}

func TestMemoryStoreUnknownGame(t *testing.T) {
	s := NewMemoryStore()
	err := s.InTx(context.Background(), "nope", func(tx game.Tx) error {
		_, err := tx.State(context.Background())
		return err
	})
	assert.ErrorIs(t, err, game.ErrGameNotFound)
}

func TestMemoryStoreCommitAndRollback(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateGame(ctx, newState("g1")))

	require.NoError(t, s.InTx(ctx, "g1", func(tx game.Tx) error {
		st, err := tx.State(ctx)
		require.NoError(t, err)
		st.RunnerPoints = 7
		require.NoError(t, tx.SaveState(ctx, st))
		return tx.InsertRoadblock(ctx, obstacles.Roadblock{ID: "rb1", GameID: "g1", NodeName: "B"})
	}))

	boom := errors.New("boom")
	err := s.InTx(ctx, "g1", func(tx game.Tx) error {
		st, _ := tx.State(ctx)
		st.RunnerPoints = 100
		require.NoError(t, tx.SaveState(ctx, st))
		require.NoError(t, tx.ClearObstacles(ctx))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	st, set, _ := s.Snapshot("g1")
	assert.Equal(t, 7, st.RunnerPoints)
	require.Len(t, set.Roadblocks, 1)
	assert.Equal(t, "B", set.Roadblocks[0].NodeName)
}

func TestMemoryStoreSavepoint(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateGame(ctx, newState("g1")))

	require.NoError(t, s.InTx(ctx, "g1", func(tx game.Tx) error {
		failed := tx.Savepoint(ctx, func(inner game.Tx) error {
			require.NoError(t, inner.InsertCurse(ctx, obstacles.Curse{ID: "c1", StartNode: "A", EndNode: "B"}))
			return errors.New("undo")
		})
		assert.Error(t, failed)

		return tx.Savepoint(ctx, func(inner game.Tx) error {
			return inner.SaveEffects(ctx, effects.Stack{effects.New(effects.SeeDouble)})
		})
	}))

	st, set, _ := s.Snapshot("g1")
	assert.Empty(t, set.Curses)
	assert.True(t, st.Effects.Has(effects.SeeDouble))
}

func TestMemoryStoreDeletes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateGame(ctx, newState("g1")))

	require.NoError(t, s.InTx(ctx, "g1", func(tx game.Tx) error {
		require.NoError(t, tx.InsertRoadblock(ctx, obstacles.Roadblock{ID: "r1", NodeName: "A"}))
		require.NoError(t, tx.InsertRoadblock(ctx, obstacles.Roadblock{ID: "r2", NodeName: "B"}))
		require.NoError(t, tx.InsertChallenge(ctx, obstacles.Challenge{ID: "ch1", NodeName: "C"}))
		require.NoError(t, tx.DeleteRoadblocks(ctx, "r1"))

		ok, err := tx.DeleteChallenge(ctx, "ch1")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = tx.DeleteCurse(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))

	_, set, _ := s.Snapshot("g1")
	require.Len(t, set.Roadblocks, 1)
	assert.Equal(t, "r2", set.Roadblocks[0].ID)
	assert.Empty(t, set.Challenges)
}
