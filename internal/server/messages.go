package server

import (
	"errors"
	"time"

	"github.com/chasegame/chase-server/internal/game"
	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/rules"
)

// Status is embedded in every response. Rule rejections are reported here
// rather than as gRPC status codes.
type Status struct {
	Success   bool   `json:"success"`
	ErrorKind string `json:"errorKind,omitempty"`
	Error     string `json:"error,omitempty"`
	// RetryAfterSeconds is set on TimingError.
	RetryAfterSeconds int64 `json:"retryAfterSeconds,omitempty"`
}

func (s Status) status() Status { return s }

// statusOf converts an engine error into a response status.
func statusOf(err error) Status {
	if err == nil {
		return Status{Success: true}
	}
	var re *rules.Error
	if !errors.As(err, &re) {
		return Status{ErrorKind: string(rules.KindPersistence), Error: err.Error()}
	}
	st := Status{ErrorKind: string(re.Kind), Error: re.Message}
	if re.Remaining > 0 {
		st.RetryAfterSeconds = int64((re.Remaining + time.Second - 1) / time.Second)
	}
	return st
}

// NewGameRequest creates a game. Players are in runner rotation order.
type NewGameRequest struct {
	GameID    string   `json:"gameId"`
	MapName   string   `json:"mapName"`
	CardSet   string   `json:"cardSet"`
	Players   []string `json:"players"`
	StartNode string   `json:"startNode"`
}

// NewGameResponse names the created game and its first runner.
type NewGameResponse struct {
	Status
	GameID          string `json:"gameId,omitempty"`
	CurrentRunnerID string `json:"currentRunnerId,omitempty"`
}

// GameRequest addresses a game with no further arguments.
type GameRequest struct {
	GameID string `json:"gameId"`
}

// StatusResponse carries only the outcome of an action.
type StatusResponse struct {
	Status
}

// MoveRequest moves the calling player to Node.
type MoveRequest struct {
	GameID string `json:"gameId"`
	Node   string `json:"node"`
}

// MoveResponse reports the scoring outcome of a runner move or the card a
// seeker move drew.
type MoveResponse struct {
	Status
	Node    string      `json:"node,omitempty"`
	Scored  bool        `json:"scored"`
	Blocked bool        `json:"blocked"`
	Points  int         `json:"points"`
	Drawn   *cards.Card `json:"drawn,omitempty"`
}

// PlayCardRequest plays CardID from the seeker hand. Target names the card a
// tutor fetches, or stands in for Node; Node2 is a second curse end node.
type PlayCardRequest struct {
	GameID string `json:"gameId"`
	CardID string `json:"cardId"`
	Target string `json:"target,omitempty"`
	Node   string `json:"node,omitempty"`
	Node2  string `json:"node2,omitempty"`
}

// ClearRoadblockRequest clears every roadblock at Node.
type ClearRoadblockRequest struct {
	GameID string `json:"gameId"`
	Node   string `json:"node"`
}

// ClearObstacleRequest clears a curse or challenge by id.
type ClearObstacleRequest struct {
	GameID string `json:"gameId"`
	ID     string `json:"id"`
}

// ClearResponse reports the scoring re-check that follows a clear.
type ClearResponse struct {
	Status
	Scored  bool `json:"scored"`
	Blocked bool `json:"blocked"`
	Points  int  `json:"points"`
}

// DiscardCardsRequest resolves a pending discard with exactly two cards.
type DiscardCardsRequest struct {
	GameID  string   `json:"gameId"`
	CardIDs []string `json:"cardIds"`
}

// PendingActionsResponse lists the seekers' active effects.
type PendingActionsResponse struct {
	Status
	Actions []game.PendingAction `json:"actions"`
}

// StateResponse is the caller's view of the game.
type StateResponse struct {
	Status
	State *game.View `json:"state,omitempty"`
}

// statusCarrier is implemented by every response.
type statusCarrier interface {
	status() Status
}
