package game

import (
	"context"
	"time"

	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/obstacles"
	"github.com/chasegame/chase-server/internal/game/rules"
)

// View is the polling snapshot of a game as one player may see it.
type View struct {
	GameID          string        `json:"gameId"`
	MapName         string        `json:"mapName"`
	Phase           rules.Phase   `json:"phase"`
	PlayerOrder     []string      `json:"playerOrder"`
	CurrentRunnerID string        `json:"currentRunnerId"`
	IsRunner        bool          `json:"isRunner"`
	SeekerNode      string        `json:"seekerNode"`
	RunnerPoints    int           `json:"runnerPoints"`
	Obstacles       obstacles.Set `json:"obstacles"`

	// RunnerNode and GameLog are empty for seekers unless the runner is revealed.
	RunnerNode string   `json:"runnerNode,omitempty"`
	GameLog    []string `json:"gameLog,omitempty"`

	// Seeker-only fields.
	Hand          cards.Hand    `json:"cardsInHand,omitempty"`
	DiscardCount  int           `json:"discardCount"`
	ActiveEffects effects.Stack `json:"activeEffects,omitempty"`

	PositioningRemaining time.Duration `json:"positioningRemaining"`
	RunElapsed           time.Duration `json:"runElapsed"`
}

// State returns the actor's view of the game. Hidden roadblocks are left out
// of the runner's view and expired informational effects out of the seekers'.
func (e *Engine) State(ctx context.Context, gameID, actorID string) (View, error) {
	var v View
	err := e.mutate(ctx, gameID, actorID, "state", func(o *op) error {
		if err := o.requirePlayer(); err != nil {
			return err
		}
		set, err := o.reg.Active(o.ctx)
		if err != nil {
			return rules.Persistence("list obstacles", err)
		}

		st := o.st
		v = View{
			GameID:               st.GameID,
			MapName:              st.MapName,
			Phase:                st.Phase,
			PlayerOrder:          append([]string(nil), st.PlayerOrder...),
			CurrentRunnerID:      st.CurrentRunnerID,
			IsRunner:             st.IsRunner(o.actor),
			SeekerNode:           st.SeekerNode,
			RunnerPoints:         st.RunnerPoints,
			DiscardCount:         len(st.DiscardPile),
			PositioningRemaining: st.PositioningRemaining(o.now, e.settings.PositioningDuration),
			RunElapsed:           st.RunElapsed(o.now),
		}
		if v.IsRunner {
			v.Obstacles = set.VisibleToRunner()
			v.RunnerNode = st.RunnerNode
			v.GameLog = append([]string(nil), st.GameLog...)
			return nil
		}

		v.Obstacles = set
		v.Hand = st.Hand.Clone()
		revealed := false
		for _, fx := range st.Effects {
			if fx.Expired(o.now) {
				continue
			}
			if fx.Type == effects.RunnerRevealed {
				revealed = true
			}
			v.ActiveEffects = append(v.ActiveEffects, fx)
		}
		if revealed || st.Phase != rules.PhaseRunning {
			v.RunnerNode = st.RunnerNode
			v.GameLog = append([]string(nil), st.GameLog...)
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return v, nil
}
