package server

import (
	"context"

	"github.com/chasegame/chase-server/internal/game"
	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "chase.v1.ChaseEngine"

// EngineService is the unary API of the rules engine.
type EngineService interface {
	NewGame(context.Context, *NewGameRequest) (*NewGameResponse, error)
	StartPositioning(context.Context, *GameRequest) (*StatusResponse, error)
	StartRun(context.Context, *GameRequest) (*StatusResponse, error)
	EndRun(context.Context, *GameRequest) (*StatusResponse, error)
	MoveToNode(context.Context, *MoveRequest) (*MoveResponse, error)
	PlayCard(context.Context, *PlayCardRequest) (*StatusResponse, error)
	ClearRoadblock(context.Context, *ClearRoadblockRequest) (*ClearResponse, error)
	ClearCurse(context.Context, *ClearObstacleRequest) (*ClearResponse, error)
	ClearChallenge(context.Context, *ClearObstacleRequest) (*ClearResponse, error)
	DiscardCards(context.Context, *DiscardCardsRequest) (*StatusResponse, error)
	GetPendingActions(context.Context, *GameRequest) (*PendingActionsResponse, error)
	GetState(context.Context, *GameRequest) (*StateResponse, error)
}

func unary[Req, Resp any](name string, call func(EngineService, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			svc := srv.(EngineService)
			if interceptor == nil {
				return call(svc, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(svc, ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes EngineService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineService)(nil),
	Methods: []grpc.MethodDesc{
		unary("NewGame", EngineService.NewGame),
		unary("StartPositioning", EngineService.StartPositioning),
		unary("StartRun", EngineService.StartRun),
		unary("EndRun", EngineService.EndRun),
		unary("MoveToNode", EngineService.MoveToNode),
		unary("PlayCard", EngineService.PlayCard),
		unary("ClearRoadblock", EngineService.ClearRoadblock),
		unary("ClearCurse", EngineService.ClearCurse),
		unary("ClearChallenge", EngineService.ClearChallenge),
		unary("DiscardCards", EngineService.DiscardCards),
		unary("GetPendingActions", EngineService.GetPendingActions),
		unary("GetState", EngineService.GetState),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chase/v1/engine",
}

// engineServer adapts game.Engine to EngineService.
type engineServer struct {
	engine *game.Engine
}

// NewEngineServer wraps engine for registration with RegisterEngineService.
func NewEngineServer(engine *game.Engine) EngineService {
	return &engineServer{engine: engine}
}

// RegisterEngineService registers svc on s.
func RegisterEngineService(s grpc.ServiceRegistrar, svc EngineService) {
	s.RegisterService(&ServiceDesc, svc)
}

func (s *engineServer) NewGame(ctx context.Context, req *NewGameRequest) (*NewGameResponse, error) {
	st, err := s.engine.NewGame(ctx, game.NewGameParams{
		GameID:    req.GameID,
		MapName:   req.MapName,
		CardSet:   req.CardSet,
		Players:   req.Players,
		StartNode: req.StartNode,
	})
	if err != nil {
		return &NewGameResponse{Status: statusOf(err)}, nil
	}
	return &NewGameResponse{
		Status:          statusOf(nil),
		GameID:          st.GameID,
		CurrentRunnerID: st.CurrentRunnerID,
	}, nil
}

func (s *engineServer) StartPositioning(ctx context.Context, req *GameRequest) (*StatusResponse, error) {
	err := s.engine.StartPositioning(ctx, req.GameID, ActorFromContext(ctx))
	return &StatusResponse{Status: statusOf(err)}, nil
}

func (s *engineServer) StartRun(ctx context.Context, req *GameRequest) (*StatusResponse, error) {
	err := s.engine.StartRun(ctx, req.GameID, ActorFromContext(ctx))
	return &StatusResponse{Status: statusOf(err)}, nil
}

func (s *engineServer) EndRun(ctx context.Context, req *GameRequest) (*StatusResponse, error) {
	err := s.engine.EndRun(ctx, req.GameID, ActorFromContext(ctx))
	return &StatusResponse{Status: statusOf(err)}, nil
}

func (s *engineServer) MoveToNode(ctx context.Context, req *MoveRequest) (*MoveResponse, error) {
	res, err := s.engine.MoveToNode(ctx, req.GameID, ActorFromContext(ctx), req.Node)
	if err != nil {
		return &MoveResponse{Status: statusOf(err)}, nil
	}
	return &MoveResponse{
		Status:  statusOf(nil),
		Node:    res.Node,
		Scored:  res.Scored,
		Blocked: res.Blocked,
		Points:  res.Points,
		Drawn:   res.Drawn,
	}, nil
}

func (s *engineServer) PlayCard(ctx context.Context, req *PlayCardRequest) (*StatusResponse, error) {
	err := s.engine.PlayCard(ctx, req.GameID, ActorFromContext(ctx), game.PlayCardRequest{
		CardID: req.CardID,
		Target: req.Target,
		Node:   req.Node,
		Node2:  req.Node2,
	})
	return &StatusResponse{Status: statusOf(err)}, nil
}

func clearResponse(res game.ScoreResult, err error) *ClearResponse {
	if err != nil {
		return &ClearResponse{Status: statusOf(err)}
	}
	return &ClearResponse{Status: statusOf(nil), Scored: res.Scored, Blocked: res.Blocked, Points: res.Points}
}

func (s *engineServer) ClearRoadblock(ctx context.Context, req *ClearRoadblockRequest) (*ClearResponse, error) {
	return clearResponse(s.engine.ClearRoadblock(ctx, req.GameID, ActorFromContext(ctx), req.Node)), nil
}

func (s *engineServer) ClearCurse(ctx context.Context, req *ClearObstacleRequest) (*ClearResponse, error) {
	return clearResponse(s.engine.ClearCurse(ctx, req.GameID, ActorFromContext(ctx), req.ID)), nil
}

func (s *engineServer) ClearChallenge(ctx context.Context, req *ClearObstacleRequest) (*ClearResponse, error) {
	return clearResponse(s.engine.ClearChallenge(ctx, req.GameID, ActorFromContext(ctx), req.ID)), nil
}

func (s *engineServer) DiscardCards(ctx context.Context, req *DiscardCardsRequest) (*StatusResponse, error) {
	err := s.engine.DiscardCards(ctx, req.GameID, ActorFromContext(ctx), req.CardIDs)
	return &StatusResponse{Status: statusOf(err)}, nil
}

func (s *engineServer) GetPendingActions(ctx context.Context, req *GameRequest) (*PendingActionsResponse, error) {
	actions, err := s.engine.GetPendingActions(ctx, req.GameID, ActorFromContext(ctx))
	if err != nil {
		return &PendingActionsResponse{Status: statusOf(err)}, nil
	}
	if actions == nil {
		actions = []game.PendingAction{}
	}
	return &PendingActionsResponse{Status: statusOf(nil), Actions: actions}, nil
}

func (s *engineServer) GetState(ctx context.Context, req *GameRequest) (*StateResponse, error) {
	view, err := s.engine.State(ctx, req.GameID, ActorFromContext(ctx))
	if err != nil {
		return &StateResponse{Status: statusOf(err)}, nil
	}
	return &StateResponse{Status: statusOf(nil), State: &view}, nil
}
