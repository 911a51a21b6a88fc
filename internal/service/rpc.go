package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// Fully-qualified service names.
const (
	AuthServiceName        = "ledger.v1.AuthService"
	LedgerServiceName      = "ledger.v1.LedgerService"
	ExpenseServiceName     = "ledger.v1.ExpenseService"
	ParticipantServiceName = "ledger.v1.ParticipantService"
	CategoryServiceName    = "ledger.v1.CategoryService"
	GroupServiceName       = "ledger.v1.GroupService"
)

// Procedure paths, one per RPC.
const (
	AuthServiceRegisterProcedure       = "/ledger.v1.AuthService/Register"
	AuthServiceLoginProcedure          = "/ledger.v1.AuthService/Login"
	AuthServiceGetCurrentUserProcedure = "/ledger.v1.AuthService/GetCurrentUser"

	LedgerServiceGetLedgerProcedure = "/ledger.v1.LedgerService/GetLedger"

	ExpenseServiceCreateExpenseProcedure  = "/ledger.v1.ExpenseService/CreateExpense"
	ExpenseServiceGetExpenseProcedure     = "/ledger.v1.ExpenseService/GetExpense"
	ExpenseServiceUpdateExpenseProcedure  = "/ledger.v1.ExpenseService/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure  = "/ledger.v1.ExpenseService/DeleteExpense"
	ExpenseServiceListExpensesProcedure   = "/ledger.v1.ExpenseService/ListExpenses"
	ExpenseServiceGetStatisticsProcedure  = "/ledger.v1.ExpenseService/GetStatistics"
	ExpenseServiceGetBalancesProcedure    = "/ledger.v1.ExpenseService/GetBalances"
	ExpenseServiceCalculateSplitProcedure = "/ledger.v1.ExpenseService/CalculateSplit"

	ParticipantServiceCreateParticipantProcedure = "/ledger.v1.ParticipantService/CreateParticipant"
	ParticipantServiceGetParticipantProcedure    = "/ledger.v1.ParticipantService/GetParticipant"
	ParticipantServiceListParticipantsProcedure  = "/ledger.v1.ParticipantService/ListParticipants"
	ParticipantServiceUpdateParticipantProcedure = "/ledger.v1.ParticipantService/UpdateParticipant"
	ParticipantServiceDeleteParticipantProcedure = "/ledger.v1.ParticipantService/DeleteParticipant"

	CategoryServiceCreateCategoryProcedure = "/ledger.v1.CategoryService/CreateCategory"
	CategoryServiceGetCategoryProcedure    = "/ledger.v1.CategoryService/GetCategory"
	CategoryServiceListCategoriesProcedure = "/ledger.v1.CategoryService/ListCategories"
	CategoryServiceUpdateCategoryProcedure = "/ledger.v1.CategoryService/UpdateCategory"
	CategoryServiceDeleteCategoryProcedure = "/ledger.v1.CategoryService/DeleteCategory"

	GroupServiceCreateGroupProcedure      = "/ledger.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure         = "/ledger.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure       = "/ledger.v1.GroupService/ListGroups"
	GroupServiceUpdateGroupProcedure      = "/ledger.v1.GroupService/UpdateGroup"
	GroupServiceDeleteGroupProcedure      = "/ledger.v1.GroupService/DeleteGroup"
	GroupServiceSyncGroupMembersProcedure = "/ledger.v1.GroupService/SyncGroupMembers"
)

// PublicProcedures can be called without a session token.
var PublicProcedures = []string{
	AuthServiceRegisterProcedure,
	AuthServiceLoginProcedure,
}

// route collects the unary handlers of one service.
type route struct {
	mux  *http.ServeMux
	opts []connect.HandlerOption
}

func newRoute(opts []connect.HandlerOption) *route {
	return &route{
		mux:  http.NewServeMux(),
		opts: append([]connect.HandlerOption{CodecOption()}, opts...),
	}
}

func handle[Req, Res any](r *route, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error)) {
	r.mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, r.opts...))
}

// respond wraps a result, converting err for the client.
func respond[T any](msg *T, err error) (*connect.Response[T], error) {
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(msg), nil
}
