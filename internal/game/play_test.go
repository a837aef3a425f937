package game_test

import (
	"testing"
	"time"

	"github.com/chasegame/chase-server/internal/game"
	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryCardDiscardsExactlyOne(t *testing.T) {
	tests := []struct {
		card  string
		req   game.PlayCardRequest
		check func(t *testing.T, f *fixture, before cards.Hand)
	}{
		{"Ambush", game.PlayCardRequest{}, func(t *testing.T, f *fixture, _ cards.Hand) {
			ch := f.obstacles().Challenges
			require.Len(t, ch, 1)
			assert.Equal(t, "A", ch[0].NodeName)
			assert.True(t, f.state().Effects.Has(effects.RunnerRevealed))
			assert.Len(t, f.state().Hand, 2)
		}},
		{"Barricade", game.PlayCardRequest{}, func(t *testing.T, f *fixture, _ cards.Hand) {
			rbs := f.obstacles().Roadblocks
			require.Len(t, rbs, 1)
			assert.Equal(t, "A", rbs[0].NodeName)
			assert.False(t, rbs[0].IsHidden)
		}},
		{"Hex", game.PlayCardRequest{Node: "B"}, func(t *testing.T, f *fixture, _ cards.Hand) {
			cs := f.obstacles().Curses
			require.Len(t, cs, 1)
			assert.Equal(t, "A", cs[0].StartNode)
			assert.Equal(t, "B", cs[0].EndNode)
		}},
		{"Double Down", game.PlayCardRequest{}, func(t *testing.T, f *fixture, _ cards.Hand) {
			st := f.state()
			assert.Len(t, st.Hand, 4)
			assert.True(t, st.Effects.Has(effects.DiscardTwo))
		}},
		{"Misdirection", game.PlayCardRequest{}, func(t *testing.T, f *fixture, _ cards.Hand) {
			assert.True(t, f.state().Effects.Has(effects.Misdirection))
		}},
		{"See Double", game.PlayCardRequest{}, func(t *testing.T, f *fixture, _ cards.Hand) {
			assert.True(t, f.state().Effects.Has(effects.SeeDouble))
		}},
		{"Fresh Start", game.PlayCardRequest{}, func(t *testing.T, f *fixture, before cards.Hand) {
			hand := f.state().Hand
			require.Len(t, hand, 3)
			for _, old := range before {
				assert.Equal(t, -1, hand.Find(old.ID))
			}
		}},
		{"Smoke and Mirrors", game.PlayCardRequest{}, func(t *testing.T, f *fixture, _ cards.Hand) {
			assert.True(t, f.state().Effects.Has(effects.HiddenRoadblock))
		}},
		{"Scavenger Hunt", game.PlayCardRequest{Target: "ambush"}, func(t *testing.T, f *fixture, _ cards.Hand) {
			hand := f.state().Hand
			require.Len(t, hand, 2)
			names := []string{hand[0].Name, hand[1].Name}
			assert.Contains(t, names, "Ambush")
		}},
		{"Master Key", game.PlayCardRequest{}, func(t *testing.T, f *fixture, _ cards.Hand) {
			assert.True(t, f.state().Effects.Has(effects.GlobalPlacement))
		}},
		{"Lucky Break", game.PlayCardRequest{}, func(t *testing.T, f *fixture, _ cards.Hand) {
			assert.Len(t, f.state().Hand, 4)
			assert.Empty(t, f.state().Effects)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.card, func(t *testing.T) {
			f := newFixture(t)
			f.create()
			f.running()
			hand := f.giveHand(tt.card, "Barricade", "Hex")
			played := hand[0]

			require.NoError(t, f.play(played, tt.req))

			st := f.state()
			assert.Equal(t, -1, st.Hand.Find(played.ID))
			require.Len(t, st.DiscardPile, 1)
			assert.Equal(t, played.ID, st.DiscardPile[0].Card.ID)
			assert.Equal(t, bob, st.DiscardPile[0].UsedBy)
			assert.Contains(t, f.eventTypes(), rules.EventCardPlayed)
			tt.check(t, f, hand[1:])
		})
	}
}

func TestHandRefreshReplacesWholeHand(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.positioning()
	hand := f.giveHand("Fresh Start", "Ambush", "Hex", "Barricade", "Lucky Break")

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))

	st := f.state()
	require.Len(t, st.Hand, 3)
	for _, old := range hand {
		assert.Equal(t, -1, st.Hand.Find(old.ID))
	}
	require.Len(t, st.DiscardPile, 1)
	assert.Equal(t, hand[0].ID, st.DiscardPile[0].Card.ID)
	assert.ElementsMatch(t, cardIDs(hand[1:]), cardIDs(st.DiscardPile[0].Dropped))
}

func TestTutorRecordsDroppedCard(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.positioning()
	hand := f.giveHand("Scavenger Hunt", "Hex")

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{Target: "Barricade"}))

	st := f.state()
	require.Len(t, st.Hand, 1)
	assert.Equal(t, "Barricade", st.Hand[0].Name)
	require.Len(t, st.DiscardPile, 1)
	require.Len(t, st.DiscardPile[0].Dropped, 1)
	assert.Equal(t, hand[1].ID, st.DiscardPile[0].Dropped[0].ID)
}

func TestPlayCardRejections(t *testing.T) {
	f := newFixture(t)
	f.create()
	hand := f.giveHand("Barricade", "Hex", "Scavenger Hunt")

	requireKind(t, f.play(hand[0], game.PlayCardRequest{}), rules.KindPhase)

	f.running()
	hand = f.giveHand("Barricade", "Hex", "Scavenger Hunt")
	requireKind(t, f.engine.PlayCard(f.ctx, gameID, alice, game.PlayCardRequest{CardID: hand[0].ID}), rules.KindRole)
	requireKind(t, f.engine.PlayCard(f.ctx, gameID, bob, game.PlayCardRequest{CardID: "nope"}), rules.KindNotFound)

	requireKind(t, f.play(hand[0], game.PlayCardRequest{Node: "C"}), rules.KindValidation)
	requireKind(t, f.play(hand[1], game.PlayCardRequest{}), rules.KindValidation)
	requireKind(t, f.play(hand[1], game.PlayCardRequest{Node: "C"}), rules.KindValidation)
	requireKind(t, f.play(hand[1], game.PlayCardRequest{Node: "A"}), rules.KindValidation)
	requireKind(t, f.play(hand[2], game.PlayCardRequest{}), rules.KindValidation)
	requireKind(t, f.play(hand[2], game.PlayCardRequest{Target: "Nonexistent"}), rules.KindValidation)

	// Every rejection left the hand and discard pile untouched.
	st := f.state()
	assert.Equal(t, cardIDs(hand), cardIDs(st.Hand))
	assert.Empty(t, st.DiscardPile)
	assert.True(t, f.obstacles().Empty())
}

func TestMisdirectionAllowsAdjacentRoadblock(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	hand := f.giveHand("Misdirection", "Barricade", "Barricade")

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))
	requireKind(t, f.play(hand[1], game.PlayCardRequest{Node: "C"}), rules.KindValidation)
	assert.True(t, f.state().Effects.Has(effects.Misdirection))

	// D -> A is an inbound edge; adjacency for placement ignores direction.
	require.NoError(t, f.play(hand[1], game.PlayCardRequest{Node: "D"}))
	rbs := f.obstacles().Roadblocks
	require.Len(t, rbs, 1)
	assert.Equal(t, "D", rbs[0].NodeName)
	assert.False(t, f.state().Effects.Has(effects.Misdirection))

	requireKind(t, f.play(hand[2], game.PlayCardRequest{Node: "B"}), rules.KindValidation)
}

func TestHiddenRoadblockConcealedFromRunner(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	_, err := f.engine.MoveToNode(f.ctx, gameID, bob, "B")
	require.NoError(t, err)
	hand := f.giveHand("Smoke and Mirrors", "Barricade")

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))
	require.NoError(t, f.play(hand[1], game.PlayCardRequest{}))
	assert.False(t, f.state().Effects.Has(effects.HiddenRoadblock))

	runnerView, err := f.engine.State(f.ctx, gameID, alice)
	require.NoError(t, err)
	assert.Empty(t, runnerView.Obstacles.Roadblocks)

	seekerView, err := f.engine.State(f.ctx, gameID, bob)
	require.NoError(t, err)
	require.Len(t, seekerView.Obstacles.Roadblocks, 1)
	assert.True(t, seekerView.Obstacles.Roadblocks[0].IsHidden)

	res, err := f.engine.MoveToNode(f.ctx, gameID, alice, "B")
	require.NoError(t, err)
	assert.True(t, res.Blocked)

	cleared, err := f.engine.ClearRoadblock(f.ctx, gameID, alice, "B")
	require.NoError(t, err)
	assert.True(t, cleared.Scored)
}

func TestGlobalPlacementConsumedByFirstPlacement(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	hand := f.giveHand("Master Key", "Hex", "Barricade")

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))
	require.NoError(t, f.play(hand[1], game.PlayCardRequest{Node: "C"}))
	assert.False(t, f.state().Effects.Has(effects.GlobalPlacement))

	requireKind(t, f.play(hand[2], game.PlayCardRequest{Node: "C"}), rules.KindValidation)
	require.Len(t, f.obstacles().Curses, 1)
}

func TestGlobalPlacementRoadblockAnywhere(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	hand := f.giveHand("Master Key", "See Double", "Barricade")

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))
	require.NoError(t, f.play(hand[1], game.PlayCardRequest{}))
	require.NoError(t, f.play(hand[2], game.PlayCardRequest{Node: "F"}))

	fx := f.state().Effects
	assert.False(t, fx.Has(effects.GlobalPlacement))
	assert.True(t, fx.Has(effects.SeeDouble), "roadblocks leave curse effects alone")
}

func TestSeeDoublePlacesTwoCurses(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	hand := f.giveHand("See Double", "Hex")

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))
	require.NoError(t, f.play(hand[1], game.PlayCardRequest{Node: "B", Node2: "E"}))

	curses := f.obstacles().Curses
	require.Len(t, curses, 2)
	assert.Equal(t, "B", curses[0].EndNode)
	assert.Equal(t, "E", curses[1].EndNode)
	assert.False(t, f.state().Effects.Has(effects.SeeDouble))
	assert.Len(t, f.state().DiscardPile, 2)
}

func TestSeeDoubleRejectedSecondKeepsFirst(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	hand := f.giveHand("See Double", "Hex")

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))
	require.NoError(t, f.play(hand[1], game.PlayCardRequest{Node: "B", Node2: "C"}))

	curses := f.obstacles().Curses
	require.Len(t, curses, 1)
	assert.Equal(t, "B", curses[0].EndNode)
	assert.False(t, f.state().Effects.Has(effects.SeeDouble))
}

func TestSecondCurseIgnoredWithoutSeeDouble(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	hand := f.giveHand("Hex")

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{Node: "B", Node2: "E"}))
	assert.Len(t, f.obstacles().Curses, 1)
}

func TestBattleRevealsRunner(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	_, err := f.engine.MoveToNode(f.ctx, gameID, alice, "B")
	require.NoError(t, err)
	hand := f.giveHand("Ambush")

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))

	view, err := f.engine.State(f.ctx, gameID, bob)
	require.NoError(t, err)
	assert.Equal(t, "B", view.RunnerNode)
	assert.Equal(t, []string{"A", "B"}, view.GameLog)
	require.Len(t, view.Obstacles.Challenges, 1)
	assert.Equal(t, "A", view.Obstacles.Challenges[0].NodeName)

	f.clock.Advance(f.engine.Settings().RevealDuration)
	view, err = f.engine.State(f.ctx, gameID, bob)
	require.NoError(t, err)
	assert.Empty(t, view.RunnerNode)
	assert.Empty(t, view.ActiveEffects)
}

func TestDiscardCards(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	hand := f.giveHand("Double Down", "Barricade", "Hex")

	requireKind(t, f.engine.DiscardCards(f.ctx, gameID, bob, []string{hand[1].ID, hand[2].ID}), rules.KindPrecondition)

	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))
	require.Len(t, f.state().Hand, 4)

	pending, err := f.engine.GetPendingActions(f.ctx, gameID, bob)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, effects.DiscardTwo, pending[0].Type)
	assert.True(t, pending[0].Required)

	requireKind(t, f.engine.DiscardCards(f.ctx, gameID, alice, []string{hand[1].ID, hand[2].ID}), rules.KindRole)
	requireKind(t, f.engine.DiscardCards(f.ctx, gameID, bob, []string{hand[1].ID}), rules.KindValidation)
	requireKind(t, f.engine.DiscardCards(f.ctx, gameID, bob, []string{hand[1].ID, hand[1].ID}), rules.KindValidation)
	requireKind(t, f.engine.DiscardCards(f.ctx, gameID, bob, []string{hand[1].ID, hand[0].ID}), rules.KindValidation)
	assert.Len(t, f.state().Hand, 4)

	require.NoError(t, f.engine.DiscardCards(f.ctx, gameID, bob, []string{hand[1].ID, hand[2].ID}))

	st := f.state()
	assert.Len(t, st.Hand, 2)
	assert.Len(t, st.DiscardPile, 3)
	assert.False(t, st.Effects.Has(effects.DiscardTwo))

	pending, err = f.engine.GetPendingActions(f.ctx, gameID, bob)
	require.NoError(t, err)
	assert.Empty(t, pending)

	requireKind(t, f.engine.DiscardCards(f.ctx, gameID, bob, cardIDs(st.Hand)), rules.KindPrecondition)
}

func TestPendingActionsEmptyForRunner(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	hand := f.giveHand("Misdirection")
	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))

	runner, err := f.engine.GetPendingActions(f.ctx, gameID, alice)
	require.NoError(t, err)
	assert.Empty(t, runner)

	seeker, err := f.engine.GetPendingActions(f.ctx, gameID, bob)
	require.NoError(t, err)
	require.Len(t, seeker, 1)
	assert.False(t, seeker[0].Required)
}

func TestEffectConsumptionFailureIsSwallowed(t *testing.T) {
	var faulty *faultyStore
	f := newFixtureWithStore(t, func(s game.Store) game.Store {
		faulty = &faultyStore{Store: s}
		return faulty
	})
	f.create()
	f.running()
	hand := f.giveHand("Misdirection", "Barricade")
	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))

	faulty.failSaveEffects = true
	f.resetEvents()
	require.NoError(t, f.play(hand[1], game.PlayCardRequest{Node: "B"}))

	rbs := f.obstacles().Roadblocks
	require.Len(t, rbs, 1)
	assert.Equal(t, "B", rbs[0].NodeName)
	st := f.state()
	assert.True(t, st.Effects.Has(effects.Misdirection), "consumption was not persisted")
	assert.Len(t, st.DiscardPile, 2)
	assert.Contains(t, f.eventTypes(), rules.EventSecondaryWriteError)
}

func TestPlayCardIsAtomic(t *testing.T) {
	var faulty *faultyStore
	f := newFixtureWithStore(t, func(s game.Store) game.Store {
		faulty = &faultyStore{Store: s}
		return faulty
	})
	f.create()
	f.running()
	hand := f.giveHand("Smoke and Mirrors", "Barricade")
	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))

	faulty.failInsertRoadblock = true
	err := f.play(hand[1], game.PlayCardRequest{})
	requireKind(t, err, rules.KindPersistence)
	assert.ErrorIs(t, err, errInjected)

	st := f.state()
	assert.NotEqual(t, -1, st.Hand.Find(hand[1].ID))
	assert.Len(t, st.DiscardPile, 1)
	assert.True(t, st.Effects.Has(effects.HiddenRoadblock))
	assert.Empty(t, f.obstacles().Roadblocks)
}

func TestSeekerMoveDrawsWithoutTouchingEffects(t *testing.T) {
	f := newFixture(t)
	f.create()
	f.running()
	hand := f.giveHand("See Double")
	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))

	_, err := f.engine.MoveToNode(f.ctx, gameID, bob, "C")
	require.NoError(t, err)

	st := f.state()
	assert.Len(t, st.Hand, 1)
	assert.Equal(t, effects.Stack{effects.New(effects.SeeDouble)}, st.Effects)
}

func TestRevealWindowIsConfigurable(t *testing.T) {
	settings := game.DefaultSettings()
	settings.RevealDuration = time.Minute
	f := newFixture(t, game.WithSettings(settings))
	f.create()
	f.running()
	hand := f.giveHand("Ambush")
	require.NoError(t, f.play(hand[0], game.PlayCardRequest{}))

	fx := f.state().Effects
	require.Len(t, fx, 1)
	require.NotNil(t, fx[0].Expiry)
	assert.True(t, fx[0].Expiry.Equal(f.clock.Now().Add(time.Minute)))
}
