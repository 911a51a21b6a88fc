package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/ledger/internal/auth"
	"github.com/mmynk/ledger/internal/ledger"
	"github.com/mmynk/ledger/internal/middleware"
)

// scoped resolves the caller's ledger for every scoped RPC.
type scoped struct {
	ledger *ledger.Service
}

func (s scoped) scope(ctx context.Context) (*ledger.Scope, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	scope, err := s.ledger.Resolve(ctx, userID)
	if err != nil {
		return nil, connectError(err)
	}
	return scope, nil
}

// LedgerService implements ledger.v1.LedgerService.
type LedgerService struct {
	scoped
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(svc *ledger.Service) *LedgerService {
	return &LedgerService{scoped{ledger: svc}}
}

// Handler returns the service's path prefix and HTTP handler.
func (s *LedgerService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRoute(opts)
	handle(r, LedgerServiceGetLedgerProcedure, s.GetLedger)
	return "/" + LedgerServiceName + "/", r.mux
}

// GetLedger bootstraps the caller's ledger, default categories included,
// and returns its directory.
func (s *LedgerService) GetLedger(ctx context.Context, req *connect.Request[GetLedgerRequest]) (*connect.Response[GetLedgerResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	scope, err := s.ledger.EnsureLedger(ctx, userID, ledger.EnsureOptions{
		EnsureParticipant:       true,
		EnsureDefaultCategories: true,
	})
	if err != nil {
		return nil, connectError(err)
	}

	participants, err := s.ledger.ListParticipants(ctx, scope)
	if err != nil {
		return nil, connectError(err)
	}
	categories, err := s.ledger.ListCategories(ctx, scope)
	return respond(&GetLedgerResponse{
		Scope:        scope,
		Participants: participants,
		Categories:   categories,
	}, err)
}
