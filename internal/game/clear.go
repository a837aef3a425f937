package game

import (
	"context"

	"github.com/chasegame/chase-server/internal/game/rules"
)

// ClearRoadblock removes every roadblock at node and re-checks scoring.
func (e *Engine) ClearRoadblock(ctx context.Context, gameID, actorID, node string) (ScoreResult, error) {
	return e.clearObstacle(ctx, gameID, actorID, "clear roadblock", func(o *op) error {
		n, err := o.reg.ClearRoadblocksAt(o.ctx, node)
		if err != nil {
			return rules.Persistence("clear roadblock", err)
		}
		if n == 0 {
			return rules.NotFoundf("no roadblock at %s", node)
		}
		o.emit(rules.EventObstacleCleared, node, n, map[string]string{"kind": "roadblock"})
		return nil
	})
}

// ClearCurse removes a curse by id and re-checks scoring.
func (e *Engine) ClearCurse(ctx context.Context, gameID, actorID, curseID string) (ScoreResult, error) {
	return e.clearObstacle(ctx, gameID, actorID, "clear curse", func(o *op) error {
		ok, err := o.reg.ClearCurse(o.ctx, curseID)
		if err != nil {
			return rules.Persistence("clear curse", err)
		}
		if !ok {
			return rules.NotFoundf("curse %s not found", curseID)
		}
		o.emit(rules.EventObstacleCleared, curseID, 1, map[string]string{"kind": "curse"})
		return nil
	})
}

// ClearChallenge resolves a battle challenge by id and re-checks scoring.
func (e *Engine) ClearChallenge(ctx context.Context, gameID, actorID, challengeID string) (ScoreResult, error) {
	return e.clearObstacle(ctx, gameID, actorID, "clear challenge", func(o *op) error {
		ok, err := o.reg.ClearChallenge(o.ctx, challengeID)
		if err != nil {
			return rules.Persistence("clear challenge", err)
		}
		if !ok {
			return rules.NotFoundf("challenge %s not found", challengeID)
		}
		o.emit(rules.EventObstacleCleared, challengeID, 1, map[string]string{"kind": "challenge"})
		return nil
	})
}

func (e *Engine) clearObstacle(ctx context.Context, gameID, actorID, name string, clear func(o *op) error) (ScoreResult, error) {
	var result ScoreResult
	err := e.mutate(ctx, gameID, actorID, name, func(o *op) error {
		if err := o.requireRunner(); err != nil {
			return err
		}
		if err := o.requireActivePhase(); err != nil {
			return err
		}
		// A clear that matches nothing still re-checks: the runner's node
		// may have been freed by an expired roadblock in the meantime.
		clearErr := clear(o)
		if clearErr != nil && rules.KindOf(clearErr) != rules.KindNotFound {
			return clearErr
		}
		var err error
		result, err = e.checkAndAwardPoints(o)
		if err != nil {
			return err
		}
		if clearErr != nil && !result.Scored {
			return clearErr
		}
		return nil
	})
	if err != nil {
		return ScoreResult{}, err
	}
	return result, nil
}
