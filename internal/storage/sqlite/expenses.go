package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

const expenseColumns = `e.id, e.couple_id, e.group_id, e.category_id, e.created_by, e.paid_by_participant_id,
	e.description, e.amount_cents, e.currency, e.exchange_rate, e.date, e.split_type,
	e.notes, e.receipt_url, e.location, e.version, e.created_at, e.updated_at, e.deleted_at`

func scanExpense(row rowScanner) (*models.Expense, error) {
	e := &models.Expense{}
	err := row.Scan(
		&e.ID,
		&e.CoupleID,
		&e.GroupID,
		&e.CategoryID,
		&e.CreatedBy,
		&e.PaidByParticipantID,
		&e.Description,
		&e.AmountCents,
		&e.Currency,
		&e.ExchangeRate,
		&e.Date,
		&e.SplitType,
		&e.Notes,
		&e.ReceiptURL,
		&e.Location,
		&e.Version,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// buildExpenseFilter returns the WHERE clause shared by listing and
// statistics. Columns are qualified with the alias "e".
func buildExpenseFilter(coupleID string, f models.ExpenseFilter) (string, []any) {
	conds := []string{"e.couple_id = ?", "e.deleted_at IS NULL"}
	args := []any{coupleID}

	if f.CategoryID != "" {
		conds = append(conds, "e.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.PaidByParticipantID != "" {
		conds = append(conds, "e.paid_by_participant_id = ?")
		args = append(args, f.PaidByParticipantID)
	}
	if f.GroupID != "" {
		conds = append(conds, "e.group_id = ?")
		args = append(args, f.GroupID)
	}
	if f.DateFrom != "" {
		conds = append(conds, "e.date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		conds = append(conds, "e.date <= ?")
		args = append(args, f.DateTo)
	}
	if f.MinAmountCents != nil {
		conds = append(conds, "e.amount_cents >= ?")
		args = append(args, *f.MinAmountCents)
	}
	if f.MaxAmountCents != nil {
		conds = append(conds, "e.amount_cents <= ?")
		args = append(args, *f.MaxAmountCents)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		conds = append(conds, `lower(e.description) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
	}

	return strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// CreateExpense inserts the expense row. Splits are inserted separately.
func (q *queries) CreateExpense(ctx context.Context, e *models.Expense) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO expenses (id, couple_id, group_id, category_id, created_by, paid_by_participant_id,
			description, amount_cents, currency, exchange_rate, date, split_type,
			notes, receipt_url, location, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.CoupleID,
		e.GroupID,
		e.CategoryID,
		e.CreatedBy,
		e.PaidByParticipantID,
		e.Description,
		e.AmountCents,
		e.Currency,
		e.ExchangeRate,
		e.Date,
		e.SplitType,
		e.Notes,
		e.ReceiptURL,
		e.Location,
		e.Version,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	q.touch(e.ID)
	return nil
}

// UpdateExpense overwrites the mutable columns of a live expense and bumps
// its version. On success e.Version holds the new version.
func (q *queries) UpdateExpense(ctx context.Context, e *models.Expense, expectedVersion int64) error {
	query := `
		UPDATE expenses
		SET group_id = ?, category_id = ?, paid_by_participant_id = ?, description = ?,
			amount_cents = ?, currency = ?, exchange_rate = ?, date = ?, split_type = ?,
			notes = ?, receipt_url = ?, location = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND couple_id = ? AND deleted_at IS NULL`
	args := []any{
		e.GroupID,
		e.CategoryID,
		e.PaidByParticipantID,
		e.Description,
		e.AmountCents,
		e.Currency,
		e.ExchangeRate,
		e.Date,
		e.SplitType,
		e.Notes,
		e.ReceiptURL,
		e.Location,
		e.UpdatedAt,
		e.ID,
		e.CoupleID,
	}
	if expectedVersion != 0 {
		query += " AND version = ?"
		args = append(args, expectedVersion)
	}
	query += " RETURNING version"

	err := q.db.QueryRowContext(ctx, query, args...).Scan(&e.Version)
	if err == sql.ErrNoRows {
		if expectedVersion == 0 {
			return storage.ErrNotFound
		}
		// Distinguish a stale version from a missing row.
		if _, getErr := q.GetExpense(ctx, e.CoupleID, e.ID); getErr != nil {
			return getErr
		}
		return storage.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	q.touch(e.ID)
	return nil
}

// GetExpense retrieves a live expense of the couple with its splits.
func (q *queries) GetExpense(ctx context.Context, coupleID, id string) (*models.Expense, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses e WHERE e.id = ? AND e.couple_id = ? AND e.deleted_at IS NULL",
		id, coupleID,
	)
	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	e.Splits, err = q.ListSplits(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListExpenses returns the live expenses matching the filter, newest first,
// with their splits attached.
func (q *queries) ListExpenses(ctx context.Context, coupleID string, filter models.ExpenseFilter) ([]models.Expense, error) {
	where, args := buildExpenseFilter(coupleID, filter)
	query := "SELECT " + expenseColumns + " FROM expenses e WHERE " + where +
		" ORDER BY e.date DESC, e.created_at DESC, e.id LIMIT ? OFFSET ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := max(filter.Offset, 0)
	args = append(args, limit, offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	var ids []string
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	splits, err := q.ListSplitsForExpenses(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Splits = splits[expenses[i].ID]
		if expenses[i].Splits == nil {
			expenses[i].Splits = []models.ExpenseSplit{}
		}
	}
	return expenses, nil
}

// SoftDeleteExpense marks a live expense as deleted. Its splits stay.
func (q *queries) SoftDeleteExpense(ctx context.Context, coupleID, id string, at int64) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE expenses SET deleted_at = ?, updated_at = ? WHERE id = ? AND couple_id = ? AND deleted_at IS NULL",
		at, at, id, coupleID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return requireRow(res)
}

// ExpenseStatistics aggregates the expenses matched by the filter. Limit and
// offset are ignored.
func (q *queries) ExpenseStatistics(ctx context.Context, coupleID string, filter models.ExpenseFilter) (*models.Statistics, error) {
	where, args := buildExpenseFilter(coupleID, filter)
	stats := &models.Statistics{
		ByCategory:    []models.CategoryTotal{},
		ByParticipant: []models.ParticipantTotal{},
	}

	err := q.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(e.amount_cents), 0), COUNT(*) FROM expenses e WHERE "+where,
		args...,
	).Scan(&stats.TotalCents, &stats.TransactionCount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses: %w", err)
	}

	catRows, err := q.db.QueryContext(ctx, `
		SELECT e.category_id, COALESCE(c.name, 'Uncategorized'), COALESCE(c.color, ''),
			SUM(e.amount_cents) AS total, COUNT(*)
		FROM expenses e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE `+where+`
		GROUP BY e.category_id
		ORDER BY total DESC, e.category_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by category: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var ct models.CategoryTotal
		if err := catRows.Scan(&ct.CategoryID, &ct.Name, &ct.Color, &ct.TotalCents, &ct.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		stats.ByCategory = append(stats.ByCategory, ct)
	}
	if err := catRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category totals: %w", err)
	}
	catRows.Close()

	participantArgs := append(append(append([]any{}, args...), args...), coupleID)
	partRows, err := q.db.QueryContext(ctx, `
		SELECT p.id, p.display_name,
			COALESCE(paid.total, 0) AS paid_total, COALESCE(share.total, 0), COALESCE(paid.cnt, 0)
		FROM participants p
		LEFT JOIN (
			SELECT e.paid_by_participant_id AS pid, SUM(e.amount_cents) AS total, COUNT(*) AS cnt
			FROM expenses e
			WHERE `+where+`
			GROUP BY e.paid_by_participant_id
		) paid ON paid.pid = p.id
		LEFT JOIN (
			SELECT s.participant_id AS pid, SUM(s.share_cents) AS total
			FROM expense_splits s
			JOIN expenses e ON e.id = s.expense_id
			WHERE `+where+`
			GROUP BY s.participant_id
		) share ON share.pid = p.id
		WHERE p.couple_id = ? AND (paid.pid IS NOT NULL OR share.pid IS NOT NULL)
		ORDER BY paid_total DESC, p.id`,
		participantArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by participant: %w", err)
	}
	defer partRows.Close()
	for partRows.Next() {
		var pt models.ParticipantTotal
		if err := partRows.Scan(&pt.ParticipantID, &pt.DisplayName, &pt.PaidCents, &pt.ShareCents, &pt.PaidCount); err != nil {
			return nil, fmt.Errorf("failed to scan participant total: %w", err)
		}
		stats.ByParticipant = append(stats.ByParticipant, pt)
	}
	if err := partRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participant totals: %w", err)
	}

	return stats, nil
}

// InsertSplits inserts the splits of an expense, assigning ids where missing.
func (q *queries) InsertSplits(ctx context.Context, expenseID string, splits []models.ExpenseSplit) error {
	for i := range splits {
		split := &splits[i]
		if split.ID == "" {
			split.ID = uuid.New().String()
		}
		split.ExpenseID = expenseID

		_, err := q.db.ExecContext(ctx,
			"INSERT INTO expense_splits (id, expense_id, participant_id, share_cents, share_percent) VALUES (?, ?, ?, ?, ?)",
			split.ID, expenseID, split.ParticipantID, split.ShareCents, split.SharePercent,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	q.touch(expenseID)
	return nil
}

// DeleteSplits removes every split of an expense.
func (q *queries) DeleteSplits(ctx context.Context, expenseID string) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", expenseID); err != nil {
		return fmt.Errorf("failed to delete splits: %w", err)
	}
	q.touch(expenseID)
	return nil
}

// ListSplits returns the splits of one expense.
func (q *queries) ListSplits(ctx context.Context, expenseID string) ([]models.ExpenseSplit, error) {
	splits, err := q.ListSplitsForExpenses(ctx, []string{expenseID})
	if err != nil {
		return nil, err
	}
	if splits[expenseID] == nil {
		return []models.ExpenseSplit{}, nil
	}
	return splits[expenseID], nil
}

// ListSplitsForExpenses returns splits grouped by expense id, ordered by
// share descending then participant id inside each expense.
func (q *queries) ListSplitsForExpenses(ctx context.Context, expenseIDs []string) (map[string][]models.ExpenseSplit, error) {
	result := make(map[string][]models.ExpenseSplit)
	if len(expenseIDs) == 0 {
		return result, nil
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT id, expense_id, participant_id, share_cents, share_percent
		FROM expense_splits
		WHERE expense_id IN (`+placeholders(len(expenseIDs))+`)
		ORDER BY expense_id, share_cents DESC, participant_id`,
		stringArgs(expenseIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.ExpenseSplit
		if err := rows.Scan(&s.ID, &s.ExpenseID, &s.ParticipantID, &s.ShareCents, &s.SharePercent); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		result[s.ExpenseID] = append(result[s.ExpenseID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return result, nil
}
