package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client calls the engine service as one player.
type Client struct {
	conn  grpc.ClientConnInterface
	actor string
}

// NewClient returns a client sending actorID in the x-actor-id header.
func NewClient(conn grpc.ClientConnInterface, actorID string) *Client {
	return &Client{conn: conn, actor: actorID}
}

// As returns a client on the same connection acting as actorID.
func (c *Client) As(actorID string) *Client {
	return &Client{conn: c.conn, actor: actorID}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	if c.actor != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, ActorHeader, c.actor)
	}
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, grpc.ForceCodec(Codec()))
}

func (c *Client) NewGame(ctx context.Context, req *NewGameRequest) (*NewGameResponse, error) {
	resp := new(NewGameResponse)
	return resp, c.invoke(ctx, "NewGame", req, resp)
}

func (c *Client) StartPositioning(ctx context.Context, gameID string) (*StatusResponse, error) {
	resp := new(StatusResponse)
	return resp, c.invoke(ctx, "StartPositioning", &GameRequest{GameID: gameID}, resp)
}

func (c *Client) StartRun(ctx context.Context, gameID string) (*StatusResponse, error) {
	resp := new(StatusResponse)
	return resp, c.invoke(ctx, "StartRun", &GameRequest{GameID: gameID}, resp)
}

func (c *Client) EndRun(ctx context.Context, gameID string) (*StatusResponse, error) {
	resp := new(StatusResponse)
	return resp, c.invoke(ctx, "EndRun", &GameRequest{GameID: gameID}, resp)
}

func (c *Client) MoveToNode(ctx context.Context, gameID, node string) (*MoveResponse, error) {
	resp := new(MoveResponse)
	return resp, c.invoke(ctx, "MoveToNode", &MoveRequest{GameID: gameID, Node: node}, resp)
}

func (c *Client) PlayCard(ctx context.Context, req *PlayCardRequest) (*StatusResponse, error) {
	resp := new(StatusResponse)
	return resp, c.invoke(ctx, "PlayCard", req, resp)
}

func (c *Client) ClearRoadblock(ctx context.Context, gameID, node string) (*ClearResponse, error) {
	resp := new(ClearResponse)
	return resp, c.invoke(ctx, "ClearRoadblock", &ClearRoadblockRequest{GameID: gameID, Node: node}, resp)
}

func (c *Client) ClearCurse(ctx context.Context, gameID, curseID string) (*ClearResponse, error) {
	resp := new(ClearResponse)
	return resp, c.invoke(ctx, "ClearCurse", &ClearObstacleRequest{GameID: gameID, ID: curseID}, resp)
}

func (c *Client) ClearChallenge(ctx context.Context, gameID, challengeID string) (*ClearResponse, error) {
	resp := new(ClearResponse)
	return resp, c.invoke(ctx, "ClearChallenge", &ClearObstacleRequest{GameID: gameID, ID: challengeID}, resp)
}

func (c *Client) DiscardCards(ctx context.Context, gameID string, cardIDs ...string) (*StatusResponse, error) {
	resp := new(StatusResponse)
	return resp, c.invoke(ctx, "DiscardCards", &DiscardCardsRequest{GameID: gameID, CardIDs: cardIDs}, resp)
}

func (c *Client) GetPendingActions(ctx context.Context, gameID string) (*PendingActionsResponse, error) {
	resp := new(PendingActionsResponse)
	return resp, c.invoke(ctx, "GetPendingActions", &GameRequest{GameID: gameID}, resp)
}

func (c *Client) GetState(ctx context.Context, gameID string) (*StateResponse, error) {
	resp := new(StateResponse)
	return resp, c.invoke(ctx, "GetState", &GameRequest{GameID: gameID}, resp)
}
