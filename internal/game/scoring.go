package game

import (
	"github.com/chasegame/chase-server/internal/game/rules"
)

// ScoreResult reports what the scoring check did.
type ScoreResult struct {
	// Scored is true when the runner's node was appended to the game log.
	Scored bool `json:"scored"`
	// Blocked is true when an obstacle holds the runner at the node.
	Blocked bool `json:"blocked"`
	Points  int  `json:"points"`
}

// checkAndAwardPoints scores the runner's current node at most once per run.
// It is re-run after every runner move and every obstacle clear.
func (e *Engine) checkAndAwardPoints(o *op) (ScoreResult, error) {
	node := o.st.RunnerNode
	if o.st.InLog(node) {
		return ScoreResult{}, nil
	}

	prev := o.st.LastLogged()
	blocking, err := o.reg.Blocking(o.ctx, prev, node)
	if err != nil {
		return ScoreResult{}, rules.Persistence("check obstacles", err)
	}
	if !blocking.Empty() {
		return ScoreResult{Blocked: true}, nil
	}

	points := 0
	if prev != "" {
		points, _ = o.board.Points(prev, node)
	}
	o.st.RunnerPoints += points
	o.st.GameLog = append(o.st.GameLog, node)
	o.dirty = true
	o.emit(rules.EventPointsAwarded, node, points, map[string]string{"from": prev})
	return ScoreResult{Scored: true, Points: points}, nil
}
