package service

import (
	"github.com/mmynk/ledger/internal/ledger"
	"github.com/mmynk/ledger/internal/models"
)

// Auth

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expiresAt"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *models.User `json:"user"`
}

// Ledger

type GetLedgerRequest struct{}

type GetLedgerResponse struct {
	Scope        *ledger.Scope        `json:"scope"`
	Participants []models.Participant `json:"participants"`
	Categories   []models.Category    `json:"categories"`
}

// Expenses

type CreateExpenseRequest = ledger.ExpenseInput

type ExpenseResponse struct {
	Expense *models.Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ID string `json:"id"`
}

type UpdateExpenseRequest struct {
	ID string `json:"id"`
	ledger.ExpensePatch
}

type DeleteExpenseRequest struct {
	ID string `json:"id"`
}

type ListExpensesRequest = models.ExpenseFilter

type GetStatisticsRequest = models.ExpenseFilter

type GetBalancesRequest = models.ExpenseFilter

type CalculateSplitRequest = ledger.SplitPreviewInput

type CalculateSplitResponse struct {
	Splits []models.ExpenseSplit `json:"splits"`
}

// DeleteResponse is returned by every delete.
type DeleteResponse struct{}

// Participants

type CreateParticipantRequest = ledger.ParticipantInput

type ParticipantResponse struct {
	Participant *models.Participant `json:"participant"`
}

type GetParticipantRequest struct {
	ID string `json:"id"`
}

type ListParticipantsRequest struct{}

type ListParticipantsResponse struct {
	Participants []models.Participant `json:"participants"`
}

type UpdateParticipantRequest struct {
	ID string `json:"id"`
	ledger.ParticipantPatch
}

type DeleteParticipantRequest struct {
	ID string `json:"id"`
}

// Categories

type CreateCategoryRequest = ledger.CategoryInput

type CategoryResponse struct {
	Category *models.Category `json:"category"`
}

type GetCategoryRequest struct {
	ID string `json:"id"`
}

type ListCategoriesRequest struct{}

type ListCategoriesResponse struct {
	Categories []models.Category `json:"categories"`
}

type UpdateCategoryRequest struct {
	ID string `json:"id"`
	ledger.CategoryPatch
}

type DeleteCategoryRequest struct {
	ID string `json:"id"`
}

// Groups

type CreateGroupRequest = ledger.GroupInput

type GroupResponse struct {
	Group *models.ExpenseGroup `json:"group"`
}

type GetGroupRequest struct {
	ID string `json:"id"`
}

type ListGroupsRequest struct {
	IncludeArchived bool `json:"includeArchived,omitempty"`
}

type ListGroupsResponse struct {
	Groups []models.ExpenseGroup `json:"groups"`
}

type UpdateGroupRequest struct {
	ID string `json:"id"`
	ledger.GroupPatch
}

type DeleteGroupRequest struct {
	ID string `json:"id"`
}

type SyncGroupMembersRequest struct {
	GroupID        string   `json:"groupId"`
	ParticipantIDs []string `json:"participantIds"`
}
