package game

import (
	"context"

	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/rules"
)

// MoveResult describes the outcome of a move.
type MoveResult struct {
	ScoreResult
	Node string `json:"node"`
	// Drawn is the card a seeker move added to the hand.
	Drawn *cards.Card `json:"drawn,omitempty"`
}

// MoveToNode moves the runner along an edge, or the seeker cursor anywhere.
func (e *Engine) MoveToNode(ctx context.Context, gameID, actorID, target string) (MoveResult, error) {
	var result MoveResult
	err := e.mutate(ctx, gameID, actorID, "move", func(o *op) error {
		if err := o.requirePlayer(); err != nil {
			return err
		}
		var err error
		if o.st.IsRunner(o.actor) {
			result, err = e.moveRunner(o, target)
		} else {
			result, err = e.moveSeeker(o, target)
		}
		return err
	})
	if err != nil {
		return MoveResult{}, err
	}
	return result, nil
}

func (e *Engine) moveRunner(o *op, target string) (MoveResult, error) {
	if o.st.Phase != rules.PhaseRunning {
		return MoveResult{}, rules.Phasef("the runner can only move while %s", rules.PhaseRunning)
	}
	from := o.st.RunnerNode
	if !o.board.HasEdge(from, target) {
		return MoveResult{}, rules.Validationf("%s is not reachable from %s", target, from)
	}
	if o.st.InLog(target) {
		return MoveResult{}, rules.Validationf("%s was already visited this run", target)
	}

	o.st.RunnerNode = target
	o.dirty = true
	o.emit(rules.EventRunnerMoved, target, 0, map[string]string{"from": from})

	score, err := e.checkAndAwardPoints(o)
	if err != nil {
		return MoveResult{}, err
	}
	return MoveResult{ScoreResult: score, Node: target}, nil
}

func (e *Engine) moveSeeker(o *op, target string) (MoveResult, error) {
	if err := o.requireActivePhase(); err != nil {
		return MoveResult{}, err
	}
	if !o.board.HasNode(target) {
		return MoveResult{}, rules.Validationf("unknown node %q", target)
	}
	drawn, err := e.drawN(o.pool, 1)
	if err != nil {
		return MoveResult{}, err
	}

	o.st.SeekerNode = target
	o.st.Hand = append(o.st.Hand, drawn[0])
	o.dirty = true
	o.emit(rules.EventSeekerMoved, target, 0, nil)
	o.emit(rules.EventCardDrawn, drawn[0].ID, 1, map[string]string{"card": drawn[0].Name})

	card := drawn[0]
	return MoveResult{Node: target, Drawn: &card}, nil
}
