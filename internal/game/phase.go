package game

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chasegame/chase-server/internal/game/rules"
	"go.uber.org/zap"
)

// NewGameParams describes a game leaving setup.
type NewGameParams struct {
	GameID  string
	MapName string
	CardSet string
	// Players in runner rotation order; the first player runs first.
	Players   []string
	StartNode string
}

// NewGame creates the game state in Intermission with both cursors at the start node.
func (e *Engine) NewGame(ctx context.Context, p NewGameParams) (*GameState, error) {
	gameID := strings.TrimSpace(p.GameID)
	if gameID == "" {
		return nil, rules.Validationf("game id is required")
	}
	if len(p.Players) < 2 {
		return nil, rules.Validationf("at least 2 players required")
	}
	seen := make(map[string]bool, len(p.Players))
	for _, id := range p.Players {
		if id == "" || seen[id] {
			return nil, rules.Validationf("player ids must be unique and non-empty")
		}
		seen[id] = true
	}

	now := e.now()
	st := &GameState{
		GameID:          gameID,
		MapName:         p.MapName,
		CardSet:         p.CardSet,
		Phase:           rules.PhaseIntermission,
		PlayerOrder:     append([]string(nil), p.Players...),
		CurrentRunnerID: p.Players[0],
		RunnerNode:      p.StartNode,
		SeekerNode:      p.StartNode,
		UpdatedAt:       now,
	}
	if err := e.withGameLock(gameID, func() error { return e.createGame(ctx, st) }); err != nil {
		return nil, err
	}

	e.logger.Info("game created",
		zap.String("game_id", gameID),
		zap.String("map", p.MapName),
		zap.String("card_set", p.CardSet),
		zap.Strings("players", p.Players),
	)
	evt := rules.NewEvent(rules.EventGameCreated, gameID, p.Players[0], p.StartNode)
	evt.Timestamp = now
	e.events.Publish(evt)
	return st.Clone(), nil
}

func (e *Engine) createGame(ctx context.Context, st *GameState) error {
	a, err := e.loadAssets(ctx, st.GameID, st.MapName, st.CardSet)
	if err != nil {
		return err
	}
	if !a.board.HasNode(st.RunnerNode) {
		e.forgetAssets(st.GameID)
		return rules.Validationf("start node %q is not on map %s", st.RunnerNode, st.MapName)
	}
	if err := e.store.CreateGame(ctx, st); err != nil {
		if errors.Is(err, ErrGameExists) {
			return rules.Validationf("game %s already exists", st.GameID)
		}
		e.forgetAssets(st.GameID)
		return rules.Persistence("create game", err)
	}
	return nil
}

func (e *Engine) forgetAssets(gameID string) {
	e.assetsMu.Lock()
	delete(e.assets, gameID)
	e.assetsMu.Unlock()
}

// StartPositioning moves Intermission -> Positioning and deals the seekers a fresh hand.
func (e *Engine) StartPositioning(ctx context.Context, gameID, actorID string) error {
	return e.mutate(ctx, gameID, actorID, "start positioning", func(o *op) error {
		if err := o.requireSeeker(); err != nil {
			return err
		}
		if err := rules.Transition(o.st.Phase, rules.PhasePositioning); err != nil {
			return err
		}
		hand, err := e.drawN(o.pool, e.settings.InitialHandSize)
		if err != nil {
			return err
		}

		now := o.now
		o.st.Phase = rules.PhasePositioning
		o.st.PositioningStartTime = &now
		o.st.Hand = hand
		o.dirty = true
		o.emit(rules.EventPositioningStarted, o.st.SeekerNode, len(hand), nil)
		return nil
	})
}

// StartRun moves Positioning -> Running once the positioning window has elapsed.
func (e *Engine) StartRun(ctx context.Context, gameID, actorID string) error {
	return e.mutate(ctx, gameID, actorID, "start run", func(o *op) error {
		if err := o.requireRunner(); err != nil {
			return err
		}
		if err := rules.Transition(o.st.Phase, rules.PhaseRunning); err != nil {
			return err
		}
		if left := o.st.PositioningRemaining(o.now, e.settings.PositioningDuration); left > 0 {
			return rules.Timing(left, "positioning ends in %s", left.Round(time.Second))
		}

		now := o.now
		o.st.Phase = rules.PhaseRunning
		o.st.GameLog = []string{o.st.RunnerNode}
		o.st.RunnerPoints = 0
		o.st.RunStartTime = &now
		o.dirty = true
		o.emit(rules.EventRunStarted, o.st.RunnerNode, 0, nil)
		return nil
	})
}

// EndRun closes the run: the next player becomes runner and every piece of
// per-run state is reset.
func (e *Engine) EndRun(ctx context.Context, gameID, actorID string) error {
	return e.mutate(ctx, gameID, actorID, "end run", func(o *op) error {
		if err := o.requireRunner(); err != nil {
			return err
		}
		if err := rules.Transition(o.st.Phase, rules.PhaseIntermission); err != nil {
			return err
		}
		if err := o.reg.ClearAll(o.ctx); err != nil {
			return rules.Persistence("clear obstacles", err)
		}

		finalPoints := o.st.RunnerPoints
		caughtAt := o.st.RunnerNode
		next := rules.NextRunner(o.st.PlayerOrder, o.st.CurrentRunnerID)

		o.st.CurrentRunnerID = next
		o.st.Phase = rules.PhaseIntermission
		o.st.PositioningStartTime = nil
		o.st.RunStartTime = nil
		o.st.RunnerPoints = 0
		o.st.Effects = nil
		o.st.GameLog = nil
		o.st.SeekerNode = caughtAt
		o.st.Hand = nil
		o.dirty = true
		o.emit(rules.EventRunEnded, caughtAt, finalPoints, map[string]string{"next_runner": next})
		return nil
	})
}
