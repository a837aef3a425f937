package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chasegame/chase-server/internal/config"
	"github.com/chasegame/chase-server/internal/game"
	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/obstacles"
	"github.com/chasegame/chase-server/internal/game/rules"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB wraps the connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB opens a pool against cfg.URL and verifies connectivity.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("connected to database",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int32("min_conns", poolCfg.MinConns),
	)
	return &DB{pool: pool, logger: logger}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.pool.Close()
}

// Stats returns pool statistics.
func (db *DB) Stats() *pgxpool.Stat {
	return db.pool.Stat()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS game_states (
		game_id                TEXT PRIMARY KEY,
		map_name               TEXT NOT NULL,
		card_set               TEXT NOT NULL,
		phase                  TEXT NOT NULL,
		player_order           JSONB NOT NULL DEFAULT '[]',
		current_runner_id      TEXT NOT NULL,
		runner_node            TEXT NOT NULL DEFAULT '',
		seeker_node            TEXT NOT NULL DEFAULT '',
		cards_in_hand          JSONB NOT NULL DEFAULT '[]',
		discard_pile           JSONB NOT NULL DEFAULT '[]',
		active_effects         JSONB NOT NULL DEFAULT '[]',
		game_log               JSONB NOT NULL DEFAULT '[]',
		runner_points          INTEGER NOT NULL DEFAULT 0,
		positioning_start_time TIMESTAMPTZ,
		run_start_time         TIMESTAMPTZ,
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS roadblocks (
		id          TEXT PRIMARY KEY,
		game_id     TEXT NOT NULL REFERENCES game_states(game_id) ON DELETE CASCADE,
		node_name   TEXT NOT NULL,
		placed_by   TEXT NOT NULL,
		is_hidden   BOOLEAN NOT NULL DEFAULT FALSE,
		description TEXT NOT NULL DEFAULT '',
		expires_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS roadblocks_game_idx ON roadblocks (game_id)`,
	`CREATE TABLE IF NOT EXISTS curses (
		id          TEXT PRIMARY KEY,
		game_id     TEXT NOT NULL REFERENCES game_states(game_id) ON DELETE CASCADE,
		start_node  TEXT NOT NULL,
		end_node    TEXT NOT NULL,
		placed_by   TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS curses_game_idx ON curses (game_id)`,
	`CREATE TABLE IF NOT EXISTS challenges (
		id          TEXT PRIMARY KEY,
		game_id     TEXT NOT NULL REFERENCES game_states(game_id) ON DELETE CASCADE,
		node_name   TEXT NOT NULL,
		placed_by   TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS challenges_game_idx ON challenges (game_id)`,
	`CREATE TABLE IF NOT EXISTS card_definitions (
		id          BIGSERIAL PRIMARY KEY,
		card_set    TEXT NOT NULL,
		name        TEXT NOT NULL,
		card_type   TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		utility     TEXT NOT NULL DEFAULT '',
		UNIQUE (card_set, name)
	)`,
}

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	db.logger.Info("database schema ready", zap.Int("statements", len(schema)))
	return nil
}

// PostgresStore is the PostgreSQL game.Store. InTx locks the game row with
// SELECT ... FOR UPDATE so concurrent servers serialize on the same game.
type PostgresStore struct {
	db *DB
}

// NewPostgresStore creates a store over db.
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateGame inserts a new game record.
func (s *PostgresStore) CreateGame(ctx context.Context, st *game.GameState) error {
	cols, err := encodeState(st)
	if err != nil {
		return err
	}
	tag, err := s.db.pool.Exec(ctx, `
		INSERT INTO game_states (
			game_id, map_name, card_set, phase, player_order, current_runner_id,
			runner_node, seeker_node, cards_in_hand, discard_pile, active_effects,
			game_log, runner_points, positioning_start_time, run_start_time, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (game_id) DO NOTHING`,
		st.GameID, st.MapName, st.CardSet, st.Phase.String(), cols.playerOrder, st.CurrentRunnerID,
		st.RunnerNode, st.SeekerNode, cols.hand, cols.discard, cols.effects,
		cols.log, st.RunnerPoints, st.PositioningStartTime, st.RunStartTime, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game %s: %w", st.GameID, err)
	}
	if tag.RowsAffected() == 0 {
		return game.ErrGameExists
	}
	return nil
}

// InTx runs fn inside one database transaction.
func (s *PostgresStore) InTx(ctx context.Context, gameID string, fn func(game.Tx) error) error {
	return pgx.BeginFunc(ctx, s.db.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, gameID: gameID})
	})
}

// CardPool loads a card set from card_definitions.
func (s *PostgresStore) CardPool(ctx context.Context, set string) (*cards.Pool, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT name, card_type, description, utility
		FROM card_definitions WHERE card_set = $1 ORDER BY id`, set)
	if err != nil {
		return nil, fmt.Errorf("query card set %s: %w", set, err)
	}
	defs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cards.Definition, error) {
		var d cards.Definition
		var typ, utility string
		if err := row.Scan(&d.Name, &typ, &d.Description, &utility); err != nil {
			return d, err
		}
		d.Type = cards.Type(typ)
		d.Utility = cards.UtilityKind(utility)
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan card set %s: %w", set, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("card set %q: %w", set, game.ErrUnknownAsset)
	}
	return cards.NewPool(set, defs)
}

// SaveCardSet replaces the stored definitions of a card set.
func (s *PostgresStore) SaveCardSet(ctx context.Context, pool *cards.Pool) error {
	return pgx.BeginFunc(ctx, s.db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM card_definitions WHERE card_set = $1`, pool.Name()); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, d := range pool.Definitions() {
			batch.Queue(`INSERT INTO card_definitions (card_set, name, card_type, description, utility)
				VALUES ($1, $2, $3, $4, $5)`, pool.Name(), d.Name, string(d.Type), d.Description, string(d.Utility))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

type pgTx struct {
	tx     pgx.Tx
	gameID string
}

func (t *pgTx) State(ctx context.Context) (*game.GameState, error) {
	var (
		st    game.GameState
		phase string
	)
	var order, hand, discard, fx, gameLog []byte
	err := t.tx.QueryRow(ctx, `
		SELECT game_id, map_name, card_set, phase, player_order, current_runner_id,
			runner_node, seeker_node, cards_in_hand, discard_pile, active_effects,
			game_log, runner_points, positioning_start_time, run_start_time, updated_at
		FROM game_states WHERE game_id = $1 FOR UPDATE`, t.gameID).Scan(
		&st.GameID, &st.MapName, &st.CardSet, &phase, &order, &st.CurrentRunnerID,
		&st.RunnerNode, &st.SeekerNode, &hand, &discard, &fx,
		&gameLog, &st.RunnerPoints, &st.PositioningStartTime, &st.RunStartTime, &st.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", t.gameID, err)
	}
	if st.Phase, err = rules.ParsePhase(phase); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{order, &st.PlayerOrder},
		{hand, &st.Hand},
		{discard, &st.DiscardPile},
		{fx, &st.Effects},
		{gameLog, &st.GameLog},
	} {
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("decode game %s: %w", t.gameID, err)
		}
	}
	return &st, nil
}

func (t *pgTx) SaveState(ctx context.Context, st *game.GameState) error {
	cols, err := encodeState(st)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE game_states SET
			phase = $2, player_order = $3, current_runner_id = $4, runner_node = $5,
			seeker_node = $6, cards_in_hand = $7, discard_pile = $8, active_effects = $9,
			game_log = $10, runner_points = $11, positioning_start_time = $12,
			run_start_time = $13, updated_at = $14
		WHERE game_id = $1`,
		t.gameID, st.Phase.String(), cols.playerOrder, st.CurrentRunnerID, st.RunnerNode,
		st.SeekerNode, cols.hand, cols.discard, cols.effects,
		cols.log, st.RunnerPoints, st.PositioningStartTime,
		st.RunStartTime, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", t.gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return game.ErrGameNotFound
	}
	return nil
}

func (t *pgTx) SaveEffects(ctx context.Context, fx effects.Stack) error {
	raw, err := json.Marshal(nonNil(fx))
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `UPDATE game_states SET active_effects = $2 WHERE game_id = $1`, t.gameID, raw)
	return err
}

func (t *pgTx) Savepoint(ctx context.Context, fn func(game.Tx) error) error {
	return pgx.BeginFunc(ctx, t.tx, func(inner pgx.Tx) error {
		return fn(&pgTx{tx: inner, gameID: t.gameID})
	})
}

func (t *pgTx) Roadblocks(ctx context.Context) ([]obstacles.Roadblock, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, game_id, node_name, placed_by, is_hidden, description, expires_at
		FROM roadblocks WHERE game_id = $1 ORDER BY created_at, id`, t.gameID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (obstacles.Roadblock, error) {
		var r obstacles.Roadblock
		err := row.Scan(&r.ID, &r.GameID, &r.NodeName, &r.PlacedBy, &r.IsHidden, &r.Description, &r.ExpiresAt)
		return r, err
	})
}

func (t *pgTx) InsertRoadblock(ctx context.Context, r obstacles.Roadblock) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO roadblocks (id, game_id, node_name, placed_by, is_hidden, description, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, t.gameID, r.NodeName, r.PlacedBy, r.IsHidden, r.Description, r.ExpiresAt)
	return err
}

func (t *pgTx) DeleteRoadblocks(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM roadblocks WHERE game_id = $1 AND id = ANY($2)`, t.gameID, ids)
	return err
}

func (t *pgTx) Curses(ctx context.Context) ([]obstacles.Curse, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, game_id, start_node, end_node, placed_by, description
		FROM curses WHERE game_id = $1 ORDER BY created_at, id`, t.gameID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (obstacles.Curse, error) {
		var c obstacles.Curse
		err := row.Scan(&c.ID, &c.GameID, &c.StartNode, &c.EndNode, &c.PlacedBy, &c.Description)
		return c, err
	})
}

func (t *pgTx) InsertCurse(ctx context.Context, c obstacles.Curse) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO curses (id, game_id, start_node, end_node, placed_by, description)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, t.gameID, c.StartNode, c.EndNode, c.PlacedBy, c.Description)
	return err
}

func (t *pgTx) DeleteCurse(ctx context.Context, id string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM curses WHERE game_id = $1 AND id = $2`, t.gameID, id)
	return affected(tag, err)
}

func (t *pgTx) Challenges(ctx context.Context) ([]obstacles.Challenge, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, game_id, node_name, placed_by, description
		FROM challenges WHERE game_id = $1 ORDER BY created_at, id`, t.gameID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (obstacles.Challenge, error) {
		var c obstacles.Challenge
		err := row.Scan(&c.ID, &c.GameID, &c.NodeName, &c.PlacedBy, &c.Description)
		return c, err
	})
}

func (t *pgTx) InsertChallenge(ctx context.Context, c obstacles.Challenge) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO challenges (id, game_id, node_name, placed_by, description)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, t.gameID, c.NodeName, c.PlacedBy, c.Description)
	return err
}

func (t *pgTx) DeleteChallenge(ctx context.Context, id string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM challenges WHERE game_id = $1 AND id = $2`, t.gameID, id)
	return affected(tag, err)
}

func (t *pgTx) ClearObstacles(ctx context.Context) error {
	for _, table := range []string{"roadblocks", "curses", "challenges"} {
		if _, err := t.tx.Exec(ctx, "DELETE FROM "+table+" WHERE game_id = $1", t.gameID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func affected(tag pgconn.CommandTag, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type stateColumns struct {
	playerOrder, hand, discard, effects, log []byte
}

func encodeState(st *game.GameState) (stateColumns, error) {
	var cols stateColumns
	var err error
	if cols.playerOrder, err = json.Marshal(nonNil(st.PlayerOrder)); err != nil {
		return cols, err
	}
	if cols.hand, err = json.Marshal(nonNil(st.Hand)); err != nil {
		return cols, err
	}
	if cols.discard, err = json.Marshal(nonNil(st.DiscardPile)); err != nil {
		return cols, err
	}
	if cols.effects, err = json.Marshal(nonNil(st.Effects)); err != nil {
		return cols, err
	}
	if cols.log, err = json.Marshal(nonNil(st.GameLog)); err != nil {
		return cols, err
	}
	return cols, nil
}

// nonNil keeps empty columns as [] rather than null.
func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}

var (
	_ game.Store            = (*PostgresStore)(nil)
	_ game.Tx               = (*pgTx)(nil)
	_ game.CardPoolProvider = (*PostgresStore)(nil)
)
