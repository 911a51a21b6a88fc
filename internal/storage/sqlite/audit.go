package sqlite

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/ledger/internal/calculator"
	"github.com/mmynk/ledger/internal/models"
)

// AuditSplits re-checks every committed expense, live or soft-deleted, against
// the split invariants. Rows written through the ledger never show up here;
// a violation means data was changed behind its back.
func (s *SQLiteStore) AuditSplits(ctx context.Context) ([]models.SplitViolation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.couple_id, e.amount_cents, e.currency, e.split_type,
			COUNT(sp.id),
			COALESCE(SUM(sp.share_cents), 0),
			COALESCE(SUM(sp.share_percent), 0),
			COALESCE(SUM(sp.share_percent IS NULL), 0),
			COALESCE(MAX(sp.participant_id = e.paid_by_participant_id), 0)
		FROM expenses e
		LEFT JOIN expense_splits sp ON sp.expense_id = e.id
		GROUP BY e.id
		ORDER BY e.created_at, e.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to audit splits: %w", err)
	}
	defer rows.Close()

	violations := []models.SplitViolation{}
	for rows.Next() {
		var (
			v             models.SplitViolation
			splitType     models.SplitType
			count         int
			percentSum    float64
			missingPct    int
			payerIncluded bool
		)
		if err := rows.Scan(&v.ExpenseID, &v.CoupleID, &v.AmountCents, &v.Currency, &splitType,
			&count, &v.ShareCents, &percentSum, &missingPct, &payerIncluded); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}

		switch {
		case count == 0:
			v.Reason = "expense has no splits"
		case v.ShareCents != v.AmountCents:
			v.Reason = "split shares do not add up to the amount"
		case !payerIncluded:
			v.Reason = "payer is not among the split participants"
		case splitType == models.SplitPercentage && missingPct > 0:
			v.Reason = "percentage split without share percent"
		case splitType == models.SplitPercentage &&
			decimal.NewFromFloat(percentSum).Sub(decimal.NewFromInt(100)).Abs().GreaterThan(calculator.PercentTolerance):
			v.Reason = fmt.Sprintf("share percents add up to %s", decimal.NewFromFloat(percentSum).StringFixed(2))
		default:
			continue
		}
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit rows: %w", err)
	}
	return violations, nil
}
