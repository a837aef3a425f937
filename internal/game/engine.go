package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chasegame/chase-server/internal/game/board"
	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/obstacles"
	"github.com/chasegame/chase-server/internal/game/rules"
	"go.uber.org/zap"
)

// Settings are the tunable rule constants.
type Settings struct {
	PositioningDuration time.Duration
	InitialHandSize     int
	RefreshHandSize     int
	BonusDrawCount      int
	RevealDuration      time.Duration
	// RoadblockTTL time-boxes new roadblocks; zero or negative disables expiry.
	RoadblockTTL time.Duration
}

// DefaultSettings returns the standard rule constants.
func DefaultSettings() Settings {
	return Settings{
		PositioningDuration: 20 * time.Minute,
		InitialHandSize:     2,
		RefreshHandSize:     3,
		BonusDrawCount:      2,
		RevealDuration:      5 * time.Minute,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings overrides the rule constants.
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRand replaces the random source used for draws and random discards.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithEventBus publishes committed events on bus.
func WithEventBus(bus *rules.EventBus) Option {
	return func(e *Engine) {
		if bus != nil {
			e.events = bus
		}
	}
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

// assets are the static per-game collaborators, loaded once per game.
type assets struct {
	board *board.Map
	pool  *cards.Pool
}

// Engine runs the rules. Every operation on a game is serialized by a
// per-game mutex and executed inside a single store transaction.
type Engine struct {
	store    Store
	maps     MapProvider
	pools    CardPoolProvider
	settings Settings
	logger   *zap.Logger
	events   *rules.EventBus
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	locksMu sync.Mutex
	locks   map[string]*gameLock

	assetsMu sync.RWMutex
	assets   map[string]assets
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(store Store, maps MapProvider, pools CardPoolProvider, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:    store,
		maps:     maps,
		pools:    pools,
		settings: DefaultSettings(),
		logger:   logger,
		events:   rules.NewEventBus(),
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		locks:    make(map[string]*gameLock),
		assets:   make(map[string]assets),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events returns the bus committed events are published on.
func (e *Engine) Events() *rules.EventBus {
	return e.events
}

// Settings returns the active rule constants.
func (e *Engine) Settings() Settings {
	return e.settings
}

// lockGame acquires the game's mutex. Entries are reference counted and
// dropped once no caller holds or waits on them.
func (e *Engine) lockGame(gameID string) func() {
	e.locksMu.Lock()
	l, ok := e.locks[gameID]
	if !ok {
		l = &gameLock{}
		e.locks[gameID] = l
	}
	l.refs++
	e.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, gameID)
		}
		e.locksMu.Unlock()
	}
}

// withGameLock runs fn holding the game's mutex. Events are published by the
// caller after it returns so listeners may call back into the engine.
func (e *Engine) withGameLock(gameID string, fn func() error) error {
	unlock := e.lockGame(gameID)
	defer unlock()
	return fn()
}

func (e *Engine) loadAssets(ctx context.Context, gameID, mapName, cardSet string) (assets, error) {
	e.assetsMu.RLock()
	a, ok := e.assets[gameID]
	e.assetsMu.RUnlock()
	if ok {
		return a, nil
	}

	m, err := e.maps.Map(ctx, mapName)
	if err != nil {
		if errors.Is(err, ErrUnknownAsset) {
			return assets{}, rules.NotFoundf("map %q not found", mapName)
		}
		return assets{}, rules.Persistence("load map", err)
	}
	pool, err := e.pools.CardPool(ctx, cardSet)
	if err != nil {
		if errors.Is(err, ErrUnknownAsset) {
			return assets{}, rules.NotFoundf("card set %q not found", cardSet)
		}
		return assets{}, rules.Persistence("load card pool", err)
	}

	a = assets{board: m, pool: pool}
	e.assetsMu.Lock()
	e.assets[gameID] = a
	e.assetsMu.Unlock()
	return a, nil
}

func (e *Engine) drawN(pool *cards.Pool, n int) ([]cards.Card, error) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	drawn, err := pool.DrawN(e.rng, n)
	if errors.Is(err, cards.ErrEmptyPool) {
		return nil, rules.Preconditionf("card set %s has no cards to draw", pool.Name())
	}
	return drawn, err
}

func (e *Engine) intN(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.IntN(n)
}

// op is the working context of one engine operation.
type op struct {
	ctx   context.Context
	tx    Tx
	st    *GameState
	board *board.Map
	pool  *cards.Pool
	reg   *obstacles.Registry
	now   time.Time
	actor string

	dirty     bool
	secondary []secondaryWrite
	events    []rules.Event
}

// secondaryWrite is a follow-up write whose failure must not undo the
// primary change.
type secondaryWrite struct {
	name      string
	write     func(Tx) error
	onSuccess func()
}

func (o *op) emit(t rules.EventType, target string, amount int, meta map[string]string) {
	evt := rules.NewEventWithAmount(t, o.st.GameID, o.actor, target, amount)
	evt.Timestamp = o.now
	for k, v := range meta {
		evt.Metadata[k] = v
	}
	o.events = append(o.events, evt)
}

func (o *op) requirePlayer() error {
	if !o.st.IsPlayer(o.actor) {
		return rules.Rolef("%s is not a player in game %s", o.actor, o.st.GameID)
	}
	return nil
}

func (o *op) requireRunner() error {
	if err := o.requirePlayer(); err != nil {
		return err
	}
	if !o.st.IsRunner(o.actor) {
		return rules.Rolef("only the runner may do this")
	}
	return nil
}

func (o *op) requireSeeker() error {
	if err := o.requirePlayer(); err != nil {
		return err
	}
	if o.st.IsRunner(o.actor) {
		return rules.Rolef("the runner may not do this")
	}
	return nil
}

func (o *op) requireActivePhase() error {
	if o.st.Phase == rules.PhaseIntermission {
		return rules.Phasef("not allowed during %s", o.st.Phase)
	}
	return nil
}

// mutate runs fn against a fresh copy of the game's state under the game
// lock and inside one transaction. The state is saved when fn marks it dirty;
// secondary writes then run in savepoints and are logged on failure.
func (e *Engine) mutate(ctx context.Context, gameID, actorID, name string, fn func(o *op) error) error {
	if actorID == "" {
		return rules.Authf("no authenticated actor")
	}
	if gameID == "" {
		return rules.Validationf("game id is required")
	}

	var events []rules.Event
	err := e.withGameLock(gameID, func() error {
		return e.store.InTx(ctx, gameID, func(tx Tx) error {
			st, err := tx.State(ctx)
			if err != nil {
				if errors.Is(err, ErrGameNotFound) {
					return rules.NotFoundf("game %s not found", gameID)
				}
				return rules.Persistence("load state", err)
			}
			a, err := e.loadAssets(ctx, gameID, st.MapName, st.CardSet)
			if err != nil {
				return err
			}

			now := e.now()
			o := &op{
				ctx:   ctx,
				tx:    tx,
				st:    st,
				board: a.board,
				pool:  a.pool,
				reg:   obstacles.NewRegistry(tx, gameID, func() time.Time { return now }),
				now:   now,
				actor: actorID,
			}
			if err := fn(o); err != nil {
				return err
			}
			if o.dirty {
				st.UpdatedAt = now
				if err := tx.SaveState(ctx, st); err != nil {
					return rules.Persistence("save state", err)
				}
			}
			for _, w := range o.secondary {
				if err := tx.Savepoint(ctx, w.write); err != nil {
					e.logger.Warn("secondary write failed",
						zap.String("game_id", gameID),
						zap.String("operation", name),
						zap.String("write", w.name),
						zap.Error(err),
					)
					o.emit(rules.EventSecondaryWriteError, w.name, 0, map[string]string{"error": err.Error()})
					continue
				}
				if w.onSuccess != nil {
					w.onSuccess()
				}
			}
			for i := range o.events {
				o.events[i].Phase = st.Phase
			}
			events = o.events
			return nil
		})
	})
	if err != nil {
		err = rules.Persistence(name, err)
		if rules.KindOf(err) == rules.KindPersistence {
			e.logger.Error("engine operation failed",
				zap.String("game_id", gameID),
				zap.String("actor", actorID),
				zap.String("operation", name),
				zap.Error(err),
			)
		} else {
			e.logger.Debug("engine operation rejected",
				zap.String("game_id", gameID),
				zap.String("actor", actorID),
				zap.String("operation", name),
				zap.String("kind", string(rules.KindOf(err))),
				zap.Error(err),
			)
		}
		return err
	}

	e.events.PublishBatch(events)
	return nil
}
