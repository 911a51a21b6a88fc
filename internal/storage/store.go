// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/ledger/internal/models"
)

var (
	// ErrNotFound is returned when a scoped lookup matches no live row.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned by UpdateExpense when the stored version
	// differs from the expected one.
	ErrVersionConflict = errors.New("version conflict")

	// ErrSplitImbalance is returned when a transaction would commit an expense
	// whose shares do not add up to its amount. It means a code path skipped
	// split validation; it is never translated into a domain error.
	ErrSplitImbalance = errors.New("split shares do not match expense amount")
)

// Queries is the set of scoped reads and writes the ledger needs.
// Every couple-owned lookup takes the couple id and treats rows of other
// couples exactly like missing rows.
type Queries interface {
	// Users

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Couples

	CreateCouple(ctx context.Context, couple *models.Couple) error
	GetCouple(ctx context.Context, id string) (*models.Couple, error)
	AddCoupleMember(ctx context.Context, member *models.CoupleMember) error
	// FindActiveMembership returns the user's active membership in an active couple.
	FindActiveMembership(ctx context.Context, userID string) (*models.CoupleMember, error)

	// Participants

	CreateParticipant(ctx context.Context, p *models.Participant) error
	// UpdateParticipant writes every mutable column, including DeletedAt.
	UpdateParticipant(ctx context.Context, p *models.Participant) error
	GetParticipant(ctx context.Context, coupleID, id string) (*models.Participant, error)
	// GetParticipantByUser also returns soft-deleted rows when includeDeleted is set.
	GetParticipantByUser(ctx context.Context, coupleID, userID string, includeDeleted bool) (*models.Participant, error)
	ListParticipants(ctx context.Context, coupleID string) ([]models.Participant, error)
	// FindParticipantByEmail matches case-insensitively among live participants,
	// ignoring excludeID.
	FindParticipantByEmail(ctx context.Context, coupleID, email, excludeID string) (*models.Participant, error)
	// CountParticipants counts how many of ids are live participants of the couple.
	CountParticipants(ctx context.Context, coupleID string, ids []string) (int, error)
	SoftDeleteParticipant(ctx context.Context, coupleID, id string, at int64) error

	// Categories

	CreateCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, coupleID, id string) (*models.Category, error)
	ListCategories(ctx context.Context, coupleID string) ([]models.Category, error)
	// CountCategories counts soft-deleted rows too when includeDeleted is set.
	CountCategories(ctx context.Context, coupleID string, includeDeleted bool) (int, error)
	// FindCategoryByName matches lower(name) among live categories, ignoring excludeID.
	FindCategoryByName(ctx context.Context, coupleID, name, excludeID string) (*models.Category, error)
	// CategoryInUse reports whether a live expense references the category.
	CategoryInUse(ctx context.Context, coupleID, id string) (bool, error)
	SoftDeleteCategory(ctx context.Context, coupleID, id string, at int64) error

	// Groups

	CreateGroup(ctx context.Context, g *models.ExpenseGroup) error
	UpdateGroup(ctx context.Context, g *models.ExpenseGroup) error
	GetGroup(ctx context.Context, coupleID, id string) (*models.ExpenseGroup, error)
	ListGroups(ctx context.Context, coupleID string, includeArchived bool) ([]models.ExpenseGroup, error)
	SoftDeleteGroup(ctx context.Context, coupleID, id string, at int64) error
	// ListGroupMembers returns every membership row, including left members.
	ListGroupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	// UpsertGroupMember inserts the row or updates role, status and UpdatedAt.
	UpsertGroupMember(ctx context.Context, m *models.GroupMember) error
	SetGroupMemberStatus(ctx context.Context, groupID, participantID string, status models.MemberStatus, at int64) error
	// LeaveAllGroups marks every active membership of the participant as left.
	LeaveAllGroups(ctx context.Context, participantID string, at int64) (int, error)

	// Expenses

	CreateExpense(ctx context.Context, e *models.Expense) error
	// UpdateExpense writes the mutable columns and bumps Version. When
	// expectedVersion is non-zero and differs from the stored version it
	// returns ErrVersionConflict.
	UpdateExpense(ctx context.Context, e *models.Expense, expectedVersion int64) error
	GetExpense(ctx context.Context, coupleID, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, coupleID string, filter models.ExpenseFilter) ([]models.Expense, error)
	SoftDeleteExpense(ctx context.Context, coupleID, id string, at int64) error
	ExpenseStatistics(ctx context.Context, coupleID string, filter models.ExpenseFilter) (*models.Statistics, error)

	// Splits

	InsertSplits(ctx context.Context, expenseID string, splits []models.ExpenseSplit) error
	DeleteSplits(ctx context.Context, expenseID string) error
	ListSplits(ctx context.Context, expenseID string) ([]models.ExpenseSplit, error)
	ListSplitsForExpenses(ctx context.Context, expenseIDs []string) (map[string][]models.ExpenseSplit, error)
}

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger engine.
type Store interface {
	Queries

	// InTx runs fn inside one transaction. The transaction commits only if fn
	// returns nil and every expense touched still balances; otherwise it rolls
	// back.
	InTx(ctx context.Context, fn func(q Queries) error) error

	// ReadTx runs fn inside one read transaction, giving it a consistent snapshot.
	ReadTx(ctx context.Context, fn func(q Queries) error) error

	// AuditSplits scans every live expense for split invariant violations.
	AuditSplits(ctx context.Context) ([]models.SplitViolation, error)

	// Close releases any resources held by the store.
	Close() error
}

// Profile selects the schema variant once at startup.
type Profile struct {
	// Name identifies the profile in configuration.
	Name string

	// DeferredGuard installs the commit-time split balance triggers. Without
	// it the store verifies touched expenses in code before committing.
	DeferredGuard bool
}

var (
	ProfileFull = Profile{Name: "full", DeferredGuard: true}
	ProfileLite = Profile{Name: "lite", DeferredGuard: false}
)

// ProfileByName resolves a configured profile name.
func ProfileByName(name string) (Profile, bool) {
	switch name {
	case ProfileFull.Name:
		return ProfileFull, true
	case ProfileLite.Name:
		return ProfileLite, true
	}
	return Profile{}, false
}
