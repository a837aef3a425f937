package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/chasegame/chase-server/internal/config"
	"github.com/chasegame/chase-server/internal/game"
	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/obstacles"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// openTestDB connects to CHASE_TEST_DATABASE_URL or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("CHASE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CHASE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{URL: url, MaxConns: 4}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewPostgresStore(db)

	id := "pg-" + uuid.NewString()
	st := newState(id)
	st.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, s.CreateGame(ctx, st))
	assert.ErrorIs(t, s.CreateGame(ctx, st), game.ErrGameExists)

	require.NoError(t, s.InTx(ctx, id, func(tx game.Tx) error {
		got, err := tx.State(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, got.PlayerOrder)
		assert.Nil(t, got.RunStartTime)

		got.GameLog = []string{"A"}
		require.NoError(t, tx.SaveState(ctx, got))
		require.NoError(t, tx.InsertRoadblock(ctx, obstacles.Roadblock{ID: uuid.NewString(), NodeName: "B", IsHidden: true}))

		err = tx.Savepoint(ctx, func(inner game.Tx) error {
			require.NoError(t, inner.InsertCurse(ctx, obstacles.Curse{ID: uuid.NewString(), StartNode: "A", EndNode: "B"}))
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		return tx.SaveEffects(ctx, effects.Stack{effects.New(effects.Misdirection)})
	}))

	require.NoError(t, s.InTx(ctx, id, func(tx game.Tx) error {
		got, err := tx.State(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, got.GameLog)
		assert.True(t, got.Effects.Has(effects.Misdirection))

		rbs, err := tx.Roadblocks(ctx)
		require.NoError(t, err)
		require.Len(t, rbs, 1)
		assert.True(t, rbs[0].IsHidden)

		curses, err := tx.Curses(ctx)
		require.NoError(t, err)
		assert.Empty(t, curses)
		return nil
	}))
}

func TestPostgresCardPool(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewPostgresStore(db)

	set := "set-" + uuid.NewString()
	pool, err := cards.NewPool(set, []cards.Definition{
		{Name: "Ambush", Type: cards.TypeBattle},
		{Name: "Master Key", Type: cards.TypeUtility},
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveCardSet(ctx, pool))

	loaded, err := s.CardPool(ctx, set)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	def, ok := loaded.Lookup("master key")
	require.True(t, ok)
	assert.Equal(t, cards.UtilityGlobalPlacement, def.Utility)

	_, err = s.CardPool(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, game.ErrUnknownAsset)
}
