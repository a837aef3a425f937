package game

import (
	"context"
	"errors"

	"github.com/chasegame/chase-server/internal/game/board"
	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/obstacles"
)

var (
	// ErrGameNotFound is returned by stores and providers for unknown ids.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameExists is returned by CreateGame for a duplicate id.
	ErrGameExists = errors.New("game already exists")
	// ErrUnknownAsset is returned by providers for an unknown map or card set.
	ErrUnknownAsset = errors.New("unknown map or card set")
)

// Store persists game state and obstacles.
type Store interface {
	CreateGame(ctx context.Context, st *GameState) error
	// InTx runs fn in one transaction scoped to gameID. Any error from fn
	// rolls back every write made through the Tx.
	InTx(ctx context.Context, gameID string, fn func(Tx) error) error
}

// Tx is a transaction bound to one game.
type Tx interface {
	obstacles.Store

	// State loads the game record, locking it for the rest of the transaction.
	State(ctx context.Context) (*GameState, error)
	SaveState(ctx context.Context, st *GameState) error
	// SaveEffects rewrites only the active effects.
	SaveEffects(ctx context.Context, fx effects.Stack) error
	// Savepoint runs fn in a nested scope whose failure is undone without
	// aborting the outer transaction.
	Savepoint(ctx context.Context, fn func(Tx) error) error
}

// MapProvider supplies static map data by name.
type MapProvider interface {
	Map(ctx context.Context, name string) (*board.Map, error)
}

// CardPoolProvider supplies the card definitions of a card set.
type CardPoolProvider interface {
	CardPool(ctx context.Context, set string) (*cards.Pool, error)
}
