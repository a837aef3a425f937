package game_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/chasegame/chase-server/internal/catalog"
	"github.com/chasegame/chase-server/internal/game"
	"github.com/chasegame/chase-server/internal/game/board"
	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/obstacles"
	"github.com/chasegame/chase-server/internal/game/rules"
	"github.com/chasegame/chase-server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	alice  = "alice"
	bob    = "bob"
	carol  = "carol"
	gameID = "g1"
)

var testDoc = catalog.Document{
	Maps: []board.Definition{{
		Name:  "grid",
		Nodes: []string{"A", "B", "C", "D", "E", "F"},
		Edges: []board.Edge{
			{From: "A", To: "B", Points: 15},
			{From: "B", To: "C", Points: 5},
			{From: "C", To: "D", Points: 4},
			{From: "A", To: "E", Points: 2},
			{From: "E", To: "D", Points: 1},
			{From: "D", To: "A", Points: 3},
		},
	}},
	CardSets: []catalog.CardSet{
		{
			Name: "full",
			Cards: []cards.Definition{
				{Name: "Ambush", Type: cards.TypeBattle, Description: "Challenge the runner"},
				{Name: "Barricade", Type: cards.TypeRoadblock, Description: "Block a node"},
				{Name: "Hex", Type: cards.TypeCurse, Description: "Curse a route"},
				{Name: "Double Down", Type: cards.TypeUtility},
				{Name: "Misdirection", Type: cards.TypeUtility},
				{Name: "See Double", Type: cards.TypeUtility},
				{Name: "Fresh Start", Type: cards.TypeUtility},
				{Name: "Smoke and Mirrors", Type: cards.TypeUtility},
				{Name: "Scavenger Hunt", Type: cards.TypeUtility},
				{Name: "Master Key", Type: cards.TypeUtility},
				{Name: "Lucky Break", Type: cards.TypeUtility},
			},
		},
		{Name: "empty"},
	},
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errInjected = errors.New("injected failure")

// faultyStore fails selected writes on top of a memory store.
type faultyStore struct {
	game.Store
	failInsertRoadblock bool
	failSaveEffects     bool
}

func (s *faultyStore) InTx(ctx context.Context, id string, fn func(game.Tx) error) error {
	return s.Store.InTx(ctx, id, func(tx game.Tx) error {
		return fn(&faultyTx{Tx: tx, s: s})
	})
}

type faultyTx struct {
	game.Tx
	s *faultyStore
}

func (t *faultyTx) InsertRoadblock(ctx context.Context, r obstacles.Roadblock) error {
	if t.s.failInsertRoadblock {
		return errInjected
	}
	return t.Tx.InsertRoadblock(ctx, r)
}

func (t *faultyTx) SaveEffects(ctx context.Context, fx effects.Stack) error {
	if t.s.failSaveEffects {
		return errInjected
	}
	return t.Tx.SaveEffects(ctx, fx)
}

func (t *faultyTx) Savepoint(ctx context.Context, fn func(game.Tx) error) error {
	return t.Tx.Savepoint(ctx, func(inner game.Tx) error {
		return fn(&faultyTx{Tx: inner, s: t.s})
	})
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	mem    *repository.MemoryStore
	cat    *catalog.Catalog
	clock  *fakeClock
	engine *game.Engine

	mu     sync.Mutex
	events []rules.Event
}

func newFixture(t *testing.T, opts ...game.Option) *fixture {
	return newFixtureWithStore(t, nil, opts...)
}

// newFixtureWithStore wraps the memory store with wrap when it is non-nil.
func newFixtureWithStore(t *testing.T, wrap func(game.Store) game.Store, opts ...game.Option) *fixture {
	t.Helper()
	cat, err := catalog.New(testDoc)
	require.NoError(t, err)

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		mem:   repository.NewMemoryStore(),
		cat:   cat,
		clock: &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	var store game.Store = f.mem
	if wrap != nil {
		store = wrap(f.mem)
	}
	base := []game.Option{
		game.WithClock(f.clock.Now),
		game.WithRand(rand.New(rand.NewPCG(7, 11))),
	}
	f.engine = game.NewEngine(store, cat, cat, zaptest.NewLogger(t), append(base, opts...)...)
	f.engine.Events().Subscribe(func(ev rules.Event) {
		f.mu.Lock()
		f.events = append(f.events, ev)
		f.mu.Unlock()
	})
	return f
}

func (f *fixture) create(players ...string) {
	f.t.Helper()
	f.createWithSet("full", players...)
}

func (f *fixture) createWithSet(set string, players ...string) {
	f.t.Helper()
	if len(players) == 0 {
		players = []string{alice, bob}
	}
	_, err := f.engine.NewGame(f.ctx, game.NewGameParams{
		GameID:    gameID,
		MapName:   "grid",
		CardSet:   set,
		Players:   players,
		StartNode: "A",
	})
	require.NoError(f.t, err)
}

func (f *fixture) positioning() {
	f.t.Helper()
	require.NoError(f.t, f.engine.StartPositioning(f.ctx, gameID, bob))
}

func (f *fixture) running() {
	f.t.Helper()
	f.positioning()
	f.clock.Advance(f.engine.Settings().PositioningDuration)
	require.NoError(f.t, f.engine.StartRun(f.ctx, gameID, alice))
}

func (f *fixture) state() *game.GameState {
	f.t.Helper()
	st, _, ok := f.mem.Snapshot(gameID)
	require.True(f.t, ok)
	return st
}

func (f *fixture) obstacles() obstacles.Set {
	f.t.Helper()
	_, set, ok := f.mem.Snapshot(gameID)
	require.True(f.t, ok)
	return set
}

func (f *fixture) update(fn func(st *game.GameState)) {
	f.t.Helper()
	require.NoError(f.t, f.mem.InTx(f.ctx, gameID, func(tx game.Tx) error {
		st, err := tx.State(f.ctx)
		if err != nil {
			return err
		}
		fn(st)
		return tx.SaveState(f.ctx, st)
	}))
}

func (f *fixture) obstacleTx(fn func(tx game.Tx) error) {
	f.t.Helper()
	require.NoError(f.t, f.mem.InTx(f.ctx, gameID, fn))
}

// card deals a fresh instance of the named definition.
func (f *fixture) card(name string) cards.Card {
	f.t.Helper()
	pool, err := f.cat.CardPool(f.ctx, "full")
	require.NoError(f.t, err)
	def, ok := pool.Lookup(name)
	require.True(f.t, ok, name)
	return def.Instantiate()
}

// giveHand replaces the seeker hand and returns it.
func (f *fixture) giveHand(names ...string) cards.Hand {
	f.t.Helper()
	hand := make(cards.Hand, 0, len(names))
	for _, n := range names {
		hand = append(hand, f.card(n))
	}
	f.update(func(st *game.GameState) { st.Hand = hand.Clone() })
	return hand
}

func (f *fixture) play(card cards.Card, req game.PlayCardRequest) error {
	req.CardID = card.ID
	return f.engine.PlayCard(f.ctx, gameID, bob, req)
}

func (f *fixture) eventTypes() []rules.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]rules.EventType, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

func (f *fixture) resetEvents() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
}

func requireKind(t *testing.T, err error, kind rules.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, rules.KindOf(err), err.Error())
}

func cardIDs(h cards.Hand) []string {
	out := make([]string, 0, len(h))
	for _, c := range h {
		out = append(out, c.ID)
	}
	return out
}
