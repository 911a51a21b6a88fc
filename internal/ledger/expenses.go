package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/calculator"
	"github.com/mmynk/ledger/internal/events"
	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

const (
	// DefaultPageSize applies when a listing does not set a limit.
	DefaultPageSize = 50
	// MaxPageSize caps the listing limit.
	MaxPageSize = 200
)

// ExpenseInput creates an expense. AmountCents may carry a fraction; it is
// rounded to whole cents. Share amounts are truncated instead.
type ExpenseInput struct {
	Description         string                  `json:"description"`
	AmountCents         float64                 `json:"amountCents"`
	Currency            string                  `json:"currency"`
	ExchangeRate        *float64                `json:"exchangeRate,omitempty"`
	Date                string                  `json:"date,omitempty"`
	CategoryID          *string                 `json:"categoryId,omitempty"`
	GroupID             *string                 `json:"groupId,omitempty"`
	PaidByParticipantID string                  `json:"paidByParticipantId"`
	SplitType           models.SplitType        `json:"splitType,omitempty"`
	Notes               *string                 `json:"notes,omitempty"`
	ReceiptURL          *string                 `json:"receiptUrl,omitempty"`
	Location            *string                 `json:"location,omitempty"`
	Splits              []calculator.SplitInput `json:"splits"`
}

// ExpensePatch updates an expense. Nil fields keep their current value; an
// empty CategoryID or GroupID clears the reference. When Splits is nil the
// existing splits are re-validated against the updated expense.
type ExpensePatch struct {
	Description         *string                 `json:"description,omitempty"`
	AmountCents         *float64                `json:"amountCents,omitempty"`
	Currency            *string                 `json:"currency,omitempty"`
	ExchangeRate        *float64                `json:"exchangeRate,omitempty"`
	Date                *string                 `json:"date,omitempty"`
	CategoryID          *string                 `json:"categoryId,omitempty"`
	GroupID             *string                 `json:"groupId,omitempty"`
	PaidByParticipantID *string                 `json:"paidByParticipantId,omitempty"`
	SplitType           *models.SplitType       `json:"splitType,omitempty"`
	Notes               *string                 `json:"notes,omitempty"`
	ReceiptURL          *string                 `json:"receiptUrl,omitempty"`
	Location            *string                 `json:"location,omitempty"`
	Splits              []calculator.SplitInput `json:"splits,omitempty"`

	// ExpectedVersion, when non-zero, must match the stored version.
	ExpectedVersion int64 `json:"expectedVersion,omitempty"`
}

// validateSplits checks a split list against the resolved amount, split type
// and payer, and returns the normalized splits to store.
func (s *Service) validateSplits(ctx context.Context, coupleID string, amountCents int64, splitType models.SplitType, payerID string, splits []calculator.SplitInput) ([]models.ExpenseSplit, error) {
	normalized, err := s.checkSplits(ctx, coupleID, amountCents, splitType, payerID, splits)
	if err != nil {
		if code := apperr.CodeOf(err); code != "" {
			splitRejections.WithLabelValues(string(code)).Inc()
		}
		return nil, err
	}
	return normalized, nil
}

func (s *Service) checkSplits(ctx context.Context, coupleID string, amountCents int64, splitType models.SplitType, payerID string, splits []calculator.SplitInput) ([]models.ExpenseSplit, error) {
	if err := calculator.CheckParticipants(payerID, splits); err != nil {
		return nil, err
	}

	ids := calculator.ParticipantIDs(splits)
	n, err := s.store.CountParticipants(ctx, coupleID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check split participants: %w", err)
	}
	if n != len(ids) {
		return nil, apperr.New(apperr.CodeInvalidParticipants, "some split participants do not belong to this ledger").WithField("splits")
	}

	return calculator.NormalizeSplits(amountCents, splitType, payerID, splits)
}

// checkReferences verifies that the category and group belong to the couple.
// Archived groups cannot receive expenses.
func (s *Service) checkReferences(ctx context.Context, coupleID string, categoryID, groupID *string) error {
	if categoryID != nil {
		if _, err := s.store.GetCategory(ctx, coupleID, *categoryID); err != nil {
			return notFound(err, apperr.CodeCategoryNotFound, "category not found", "get category")
		}
	}
	if groupID != nil {
		g, err := s.store.GetGroup(ctx, coupleID, *groupID)
		if err != nil {
			return notFound(err, apperr.CodeGroupNotFound, "group not found", "get group")
		}
		if g.IsArchived {
			return apperr.New(apperr.CodeGroupNotFound, "group is archived")
		}
	}
	return nil
}

func resolveSplitType(t models.SplitType) (models.SplitType, error) {
	if t == "" {
		return models.SplitEqual, nil
	}
	if !t.Valid() {
		return "", apperr.Validation("splitType", fmt.Sprintf("unknown split type %q", t))
	}
	return t, nil
}

func validateExchangeRate(rate *float64) error {
	if rate != nil && !(*rate > 0) {
		return apperr.Validation("exchangeRate", "exchangeRate must be positive")
	}
	return nil
}

// CreateExpense validates and stores an expense with its splits.
func (s *Service) CreateExpense(ctx context.Context, scope *Scope, in ExpenseInput) (*models.Expense, error) {
	description, err := requireText("description", in.Description)
	if err != nil {
		return nil, err
	}
	currency, err := normalizeCurrency("currency", in.Currency)
	if err != nil {
		return nil, err
	}
	if err := validateExchangeRate(in.ExchangeRate); err != nil {
		return nil, err
	}
	date := in.Date
	if date == "" {
		date = s.now().UTC().Format(models.DateLayout)
	}
	if err := validateDate("date", date); err != nil {
		return nil, err
	}
	categoryID, groupID := optionalText(in.CategoryID), optionalText(in.GroupID)
	if err := s.checkReferences(ctx, scope.CoupleID, categoryID, groupID); err != nil {
		return nil, err
	}

	amount, err := normalizeAmount(in.AmountCents)
	if err != nil {
		return nil, err
	}
	splitType, err := resolveSplitType(in.SplitType)
	if err != nil {
		return nil, err
	}
	splits, err := s.validateSplits(ctx, scope.CoupleID, amount, splitType, in.PaidByParticipantID, in.Splits)
	if err != nil {
		return nil, err
	}

	now := s.unixNow()
	e := &models.Expense{
		ID:                  uuid.New().String(),
		CoupleID:            scope.CoupleID,
		GroupID:             groupID,
		CategoryID:          categoryID,
		CreatedBy:           scope.UserID,
		PaidByParticipantID: in.PaidByParticipantID,
		Description:         description,
		AmountCents:         amount,
		Currency:            currency,
		ExchangeRate:        in.ExchangeRate,
		Date:                date,
		SplitType:           splitType,
		Notes:               optionalText(in.Notes),
		ReceiptURL:          optionalText(in.ReceiptURL),
		Location:            optionalText(in.Location),
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.inTx(ctx, "CreateExpense", func(q storage.Queries) error {
		if err := q.CreateExpense(ctx, e); err != nil {
			return err
		}
		if err := q.InsertSplits(ctx, e.ID, splits); err != nil {
			return err
		}
		var err error
		e.Splits, err = q.ListSplits(ctx, e.ID)
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "CreateExpense failed", "couple_id", scope.CoupleID, "error", err)
		return nil, err
	}

	expenseMutations.WithLabelValues("create").Inc()
	slog.InfoContext(ctx, "Expense created",
		"couple_id", scope.CoupleID,
		"expense_id", e.ID,
		"amount_cents", e.AmountCents,
		"splits", len(e.Splits))
	event := events.New(events.ExpenseCreated, scope.CoupleID, e.ID, scope.UserID)
	event.Version = e.Version
	s.publish(ctx, event)
	return e, nil
}

// GetExpense returns a live expense of the caller's couple.
func (s *Service) GetExpense(ctx context.Context, scope *Scope, id string) (*models.Expense, error) {
	e, err := s.store.GetExpense(ctx, scope.CoupleID, id)
	if err != nil {
		return nil, notFound(err, apperr.CodeExpenseNotFound, "expense not found", "get expense")
	}
	return e, nil
}

// UpdateExpense applies a patch and replaces the whole split set. The
// resulting splits always satisfy the invariants against the updated
// amount, split type and payer.
func (s *Service) UpdateExpense(ctx context.Context, scope *Scope, id string, patch ExpensePatch) (*models.Expense, error) {
	existing, err := s.GetExpense(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if patch.ExpectedVersion != 0 && patch.ExpectedVersion != existing.Version {
		return nil, versionConflict()
	}

	e := *existing
	if err := s.applyExpensePatch(ctx, scope, &e, patch); err != nil {
		return nil, err
	}

	splitInputs := patch.Splits
	if splitInputs == nil {
		splitInputs = calculator.SplitInputsFrom(existing.Splits)
	}
	splits, err := s.validateSplits(ctx, scope.CoupleID, e.AmountCents, e.SplitType, e.PaidByParticipantID, splitInputs)
	if err != nil {
		return nil, err
	}

	e.UpdatedAt = s.unixNow()
	err = s.inTx(ctx, "UpdateExpense", func(q storage.Queries) error {
		if err := q.UpdateExpense(ctx, &e, patch.ExpectedVersion); err != nil {
			switch {
			case errors.Is(err, storage.ErrVersionConflict):
				return versionConflict()
			case errors.Is(err, storage.ErrNotFound):
				return apperr.New(apperr.CodeExpenseNotFound, "expense not found")
			}
			return err
		}
		if err := q.DeleteSplits(ctx, e.ID); err != nil {
			return err
		}
		if err := q.InsertSplits(ctx, e.ID, splits); err != nil {
			return err
		}
		var err error
		e.Splits, err = q.ListSplits(ctx, e.ID)
		return err
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			slog.ErrorContext(ctx, "UpdateExpense failed", "expense_id", id, "error", err)
		}
		return nil, err
	}

	expenseMutations.WithLabelValues("update").Inc()
	slog.InfoContext(ctx, "Expense updated",
		"couple_id", scope.CoupleID,
		"expense_id", e.ID,
		"amount_cents", e.AmountCents,
		"version", e.Version)
	event := events.New(events.ExpenseUpdated, scope.CoupleID, e.ID, scope.UserID)
	event.Version = e.Version
	s.publish(ctx, event)
	return &e, nil
}

func versionConflict() error {
	return apperr.New(apperr.CodeExpenseVersionConflict, "expense was modified by someone else").WithField("expectedVersion")
}

// applyExpensePatch validates and applies every non-split field of the patch.
func (s *Service) applyExpensePatch(ctx context.Context, scope *Scope, e *models.Expense, patch ExpensePatch) error {
	var err error
	if patch.Description != nil {
		if e.Description, err = requireText("description", *patch.Description); err != nil {
			return err
		}
	}
	if patch.AmountCents != nil {
		if e.AmountCents, err = normalizeAmount(*patch.AmountCents); err != nil {
			return err
		}
	}
	if patch.Currency != nil {
		if e.Currency, err = normalizeCurrency("currency", *patch.Currency); err != nil {
			return err
		}
	}
	if patch.ExchangeRate != nil {
		if err := validateExchangeRate(patch.ExchangeRate); err != nil {
			return err
		}
		e.ExchangeRate = patch.ExchangeRate
	}
	if patch.Date != nil {
		if err := validateDate("date", *patch.Date); err != nil {
			return err
		}
		e.Date = *patch.Date
	}

	var newCategory, newGroup *string
	if patch.CategoryID != nil {
		e.CategoryID = optionalText(patch.CategoryID)
		newCategory = e.CategoryID
	}
	if patch.GroupID != nil {
		e.GroupID = optionalText(patch.GroupID)
		newGroup = e.GroupID
	}
	if err := s.checkReferences(ctx, scope.CoupleID, newCategory, newGroup); err != nil {
		return err
	}

	if patch.PaidByParticipantID != nil {
		e.PaidByParticipantID = *patch.PaidByParticipantID
	}
	if patch.SplitType != nil {
		if e.SplitType, err = resolveSplitType(*patch.SplitType); err != nil {
			return err
		}
	}
	if patch.Notes != nil {
		e.Notes = optionalText(patch.Notes)
	}
	if patch.ReceiptURL != nil {
		e.ReceiptURL = optionalText(patch.ReceiptURL)
	}
	if patch.Location != nil {
		e.Location = optionalText(patch.Location)
	}
	return nil
}

// DeleteExpense soft-deletes an expense. Its splits are kept.
func (s *Service) DeleteExpense(ctx context.Context, scope *Scope, id string) error {
	if err := s.store.SoftDeleteExpense(ctx, scope.CoupleID, id, s.unixNow()); err != nil {
		return notFound(err, apperr.CodeExpenseNotFound, "expense not found", "delete expense")
	}

	expenseMutations.WithLabelValues("delete").Inc()
	slog.InfoContext(ctx, "Expense deleted", "couple_id", scope.CoupleID, "expense_id", id)
	s.publish(ctx, events.New(events.ExpenseDeleted, scope.CoupleID, id, scope.UserID))
	return nil
}

// validateFilter checks the filter's dates and amount range and applies the
// page size defaults.
func validateFilter(filter models.ExpenseFilter) (models.ExpenseFilter, error) {
	if filter.DateFrom != "" {
		if err := validateDate("dateFrom", filter.DateFrom); err != nil {
			return filter, err
		}
	}
	if filter.DateTo != "" {
		if err := validateDate("dateTo", filter.DateTo); err != nil {
			return filter, err
		}
	}
	if filter.MinAmountCents != nil && filter.MaxAmountCents != nil && *filter.MinAmountCents > *filter.MaxAmountCents {
		return filter, apperr.Validation("minAmountCents", "minAmountCents must not exceed maxAmountCents")
	}
	if filter.Offset < 0 {
		return filter, apperr.Validation("offset", "offset must not be negative")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultPageSize
	case filter.Limit > MaxPageSize:
		filter.Limit = MaxPageSize
	}
	return filter, nil
}

// ListExpenses returns one page of the couple's live expenses, newest first.
func (s *Service) ListExpenses(ctx context.Context, scope *Scope, filter models.ExpenseFilter) (*models.ExpensePage, error) {
	filter, err := validateFilter(filter)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	filter.Limit = limit + 1
	expenses, err := s.store.ListExpenses(ctx, scope.CoupleID, filter)
	if err != nil {
		slog.ErrorContext(ctx, "ListExpenses failed", "couple_id", scope.CoupleID, "error", err)
		return nil, err
	}

	page := &models.ExpensePage{Expenses: expenses}
	if len(expenses) > limit {
		page.Expenses = expenses[:limit]
		page.HasMore = true
	}
	return page, nil
}
