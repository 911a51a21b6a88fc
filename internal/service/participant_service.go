package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/ledger/internal/ledger"
)

// ParticipantService implements ledger.v1.ParticipantService.
type ParticipantService struct {
	scoped
}

// NewParticipantService creates a ParticipantService.
func NewParticipantService(svc *ledger.Service) *ParticipantService {
	return &ParticipantService{scoped{ledger: svc}}
}

// Handler returns the service's path prefix and HTTP handler.
func (s *ParticipantService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRoute(opts)
	handle(r, ParticipantServiceCreateParticipantProcedure, s.CreateParticipant)
	handle(r, ParticipantServiceGetParticipantProcedure, s.GetParticipant)
	handle(r, ParticipantServiceListParticipantsProcedure, s.ListParticipants)
	handle(r, ParticipantServiceUpdateParticipantProcedure, s.UpdateParticipant)
	handle(r, ParticipantServiceDeleteParticipantProcedure, s.DeleteParticipant)
	return "/" + ParticipantServiceName + "/", r.mux
}

func (s *ParticipantService) CreateParticipant(ctx context.Context, req *connect.Request[CreateParticipantRequest]) (*connect.Response[ParticipantResponse], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.ledger.CreateParticipant(ctx, scope, *req.Msg)
	return respond(&ParticipantResponse{Participant: p}, err)
}

func (s *ParticipantService) GetParticipant(ctx context.Context, req *connect.Request[GetParticipantRequest]) (*connect.Response[ParticipantResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.ledger.GetParticipant(ctx, scope, req.Msg.ID)
	return respond(&ParticipantResponse{Participant: p}, err)
}

func (s *ParticipantService) ListParticipants(ctx context.Context, req *connect.Request[ListParticipantsRequest]) (*connect.Response[ListParticipantsResponse], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	participants, err := s.ledger.ListParticipants(ctx, scope)
	return respond(&ListParticipantsResponse{Participants: participants}, err)
}

func (s *ParticipantService) UpdateParticipant(ctx context.Context, req *connect.Request[UpdateParticipantRequest]) (*connect.Response[ParticipantResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.ledger.UpdateParticipant(ctx, scope, req.Msg.ID, req.Msg.ParticipantPatch)
	return respond(&ParticipantResponse{Participant: p}, err)
}

func (s *ParticipantService) DeleteParticipant(ctx context.Context, req *connect.Request[DeleteParticipantRequest]) (*connect.Response[DeleteResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	return respond(&DeleteResponse{}, s.ledger.DeleteParticipant(ctx, scope, req.Msg.ID))
}
