package ledger

import (
	"context"
	"log/slog"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/calculator"
	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

// GetStatistics aggregates the expenses matched by filter. Limit and Offset
// are ignored.
func (s *Service) GetStatistics(ctx context.Context, scope *Scope, filter models.ExpenseFilter) (*models.Statistics, error) {
	filter, err := validateFilter(filter)
	if err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = 0, 0

	var stats *models.Statistics
	err = s.store.ReadTx(ctx, func(q storage.Queries) error {
		var err error
		stats, err = q.ExpenseStatistics(ctx, scope.CoupleID, filter)
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "GetStatistics failed", "couple_id", scope.CoupleID, "error", err)
		return nil, err
	}
	return stats, nil
}

// GetBalances computes every participant's net position over the expenses
// matched by filter, with suggested settling transfers.
func (s *Service) GetBalances(ctx context.Context, scope *Scope, filter models.ExpenseFilter) (*models.Balances, error) {
	filter, err := validateFilter(filter)
	if err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = 0, 0

	var expenses []models.Expense
	err = s.store.ReadTx(ctx, func(q storage.Queries) error {
		var err error
		expenses, err = q.ListExpenses(ctx, scope.CoupleID, filter)
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "GetBalances failed", "couple_id", scope.CoupleID, "error", err)
		return nil, err
	}

	balances := calculator.CalculateBalances(expenses)
	return &balances, nil
}

// SplitPreviewInput asks for suggested shares. Only equal and percentage
// splits can be suggested; custom shares are the caller's choice.
type SplitPreviewInput struct {
	AmountCents    float64                   `json:"amountCents"`
	SplitType      models.SplitType          `json:"splitType"`
	ParticipantIDs []string                  `json:"participantIds,omitempty"`
	Percents       []calculator.PercentInput `json:"percents,omitempty"`
}

// PreviewSplit returns shares that add up to the rounded amount and would
// pass validation. Nothing is stored.
func (s *Service) PreviewSplit(ctx context.Context, scope *Scope, in SplitPreviewInput) ([]models.ExpenseSplit, error) {
	amount, err := normalizeAmount(in.AmountCents)
	if err != nil {
		return nil, err
	}
	splitType, err := resolveSplitType(in.SplitType)
	if err != nil {
		return nil, err
	}

	var ids []string
	switch splitType {
	case models.SplitEqual:
		ids = in.ParticipantIDs
	case models.SplitPercentage:
		for _, p := range in.Percents {
			ids = append(ids, p.ParticipantID)
		}
	default:
		return nil, apperr.Validation("splitType", "only equal and percentage splits can be previewed")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, apperr.Newf(apperr.CodeDuplicateSplitParticipant, "participant %s appears more than once", id)
		}
		seen[id] = true
	}
	n, err := s.store.CountParticipants(ctx, scope.CoupleID, ids)
	if err != nil {
		return nil, err
	}
	if n != len(ids) {
		return nil, apperr.New(apperr.CodeInvalidParticipants, "some participants do not belong to this ledger").WithField("participantIds")
	}

	if splitType == models.SplitPercentage {
		return calculator.PercentShares(amount, in.Percents)
	}
	return calculator.EqualShares(amount, ids)
}
