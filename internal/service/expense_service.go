package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/ledger/internal/ledger"
	"github.com/mmynk/ledger/internal/models"
)

// ExpenseService implements ledger.v1.ExpenseService.
type ExpenseService struct {
	scoped
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(svc *ledger.Service) *ExpenseService {
	return &ExpenseService{scoped{ledger: svc}}
}

// Handler returns the service's path prefix and HTTP handler.
func (s *ExpenseService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRoute(opts)
	handle(r, ExpenseServiceCreateExpenseProcedure, s.CreateExpense)
	handle(r, ExpenseServiceGetExpenseProcedure, s.GetExpense)
	handle(r, ExpenseServiceUpdateExpenseProcedure, s.UpdateExpense)
	handle(r, ExpenseServiceDeleteExpenseProcedure, s.DeleteExpense)
	handle(r, ExpenseServiceListExpensesProcedure, s.ListExpenses)
	handle(r, ExpenseServiceGetStatisticsProcedure, s.GetStatistics)
	handle(r, ExpenseServiceGetBalancesProcedure, s.GetBalances)
	handle(r, ExpenseServiceCalculateSplitProcedure, s.CalculateSplit)
	return "/" + ExpenseServiceName + "/", r.mux
}

func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.ledger.CreateExpense(ctx, scope, *req.Msg)
	return respond(&ExpenseResponse{Expense: e}, err)
}

func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.ledger.GetExpense(ctx, scope, req.Msg.ID)
	return respond(&ExpenseResponse{Expense: e}, err)
}

// UpdateExpense replaces the expense's fields that are set and, when splits
// are given, its whole split set.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.ledger.UpdateExpense(ctx, scope, req.Msg.ID, req.Msg.ExpensePatch)
	return respond(&ExpenseResponse{Expense: e}, err)
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	return respond(&DeleteResponse{}, s.ledger.DeleteExpense(ctx, scope, req.Msg.ID))
}

func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[models.ExpensePage], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	page, err := s.ledger.ListExpenses(ctx, scope, *req.Msg)
	return respond(page, err)
}

func (s *ExpenseService) GetStatistics(ctx context.Context, req *connect.Request[GetStatisticsRequest]) (*connect.Response[models.Statistics], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.ledger.GetStatistics(ctx, scope, *req.Msg)
	return respond(stats, err)
}

func (s *ExpenseService) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[models.Balances], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.ledger.GetBalances(ctx, scope, *req.Msg)
	return respond(balances, err)
}

// CalculateSplit suggests shares for an amount without storing anything.
func (s *ExpenseService) CalculateSplit(ctx context.Context, req *connect.Request[CalculateSplitRequest]) (*connect.Response[CalculateSplitResponse], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	splits, err := s.ledger.PreviewSplit(ctx, scope, *req.Msg)
	return respond(&CalculateSplitResponse{Splits: splits}, err)
}
