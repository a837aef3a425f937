package game

import (
	"time"

	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/rules"
)

// GameState is the single mutable record of a game.
type GameState struct {
	GameID  string `json:"gameId"`
	MapName string `json:"mapName"`
	CardSet string `json:"cardSet"`

	Phase rules.Phase `json:"phase"`
	// PlayerOrder is fixed for the game; the runner role rotates through it.
	PlayerOrder     []string `json:"playerOrder"`
	CurrentRunnerID string   `json:"currentRunnerId"`

	RunnerNode string `json:"runnerNode"`
	SeekerNode string `json:"seekerNode"`

	// Hand is shared by all seekers.
	Hand        cards.Hand        `json:"cardsInHand"`
	DiscardPile cards.DiscardPile `json:"discardPile"`
	Effects     effects.Stack     `json:"activeEffects"`

	// GameLog lists the nodes scored during the current run, without repeats.
	GameLog      []string `json:"gameLog"`
	RunnerPoints int      `json:"runnerPoints"`

	PositioningStartTime *time.Time `json:"positioningStartTime,omitempty"`
	RunStartTime         *time.Time `json:"runStartTime,omitempty"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy so a transaction can mutate it freely.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.PlayerOrder = append([]string(nil), s.PlayerOrder...)
	out.Hand = s.Hand.Clone()
	out.DiscardPile = s.DiscardPile.Clone()
	out.Effects = s.Effects.Clone()
	out.GameLog = append([]string(nil), s.GameLog...)
	out.PositioningStartTime = cloneTime(s.PositioningStartTime)
	out.RunStartTime = cloneTime(s.RunStartTime)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// IsPlayer reports whether id is in the player order.
func (s *GameState) IsPlayer(id string) bool {
	for _, p := range s.PlayerOrder {
		if p == id {
			return true
		}
	}
	return false
}

// IsRunner reports whether id currently holds the runner role.
func (s *GameState) IsRunner(id string) bool {
	return id != "" && id == s.CurrentRunnerID
}

// InLog reports whether node was already scored this run.
func (s *GameState) InLog(node string) bool {
	for _, n := range s.GameLog {
		if n == node {
			return true
		}
	}
	return false
}

// LastLogged returns the most recently scored node, or "" at the start of a run.
func (s *GameState) LastLogged() string {
	if len(s.GameLog) == 0 {
		return ""
	}
	return s.GameLog[len(s.GameLog)-1]
}

// PositioningRemaining is the time left before the run may start.
func (s *GameState) PositioningRemaining(now time.Time, window time.Duration) time.Duration {
	if s.Phase != rules.PhasePositioning || s.PositioningStartTime == nil {
		return 0
	}
	left := window - now.Sub(*s.PositioningStartTime)
	if left < 0 {
		return 0
	}
	return left
}

// RunElapsed is the time since the current run started.
func (s *GameState) RunElapsed(now time.Time) time.Duration {
	if s.Phase != rules.PhaseRunning || s.RunStartTime == nil {
		return 0
	}
	return now.Sub(*s.RunStartTime)
}
