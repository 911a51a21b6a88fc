package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mmynk/ledger/internal/storage"
)

// InTx runs fn in a single write transaction. Before committing it checks
// the split balance of every expense the transaction touched. An imbalance
// rolls the transaction back and returns storage.ErrSplitImbalance.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(q storage.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := &queries{db: tx, touched: make(map[string]struct{})}
	if err := fn(q); err != nil {
		return err
	}

	if err := s.verifyBalances(ctx, tx, q.touched); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReadTx runs fn in a transaction that is always rolled back.
func (s *SQLiteStore) ReadTx(ctx context.Context, fn func(q storage.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&queries{db: tx})
}

// verifyBalances is the pre-commit read-back. With the deferred guard
// installed the triggers have already recorded every imbalance, so a single
// lookup is enough; without it the touched expenses are re-summed here.
func (s *SQLiteStore) verifyBalances(ctx context.Context, tx *sql.Tx, touched map[string]struct{}) error {
	if s.profile.DeferredGuard {
		var expenseID string
		var amount, shares int64
		err := tx.QueryRowContext(ctx,
			"SELECT expense_id, amount_cents, share_cents FROM split_imbalances LIMIT 1",
		).Scan(&expenseID, &amount, &shares)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to check split balance: %w", err)
		}
		return imbalance(expenseID, amount, shares)
	}

	if len(touched) == 0 {
		return nil
	}
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	query := `
		SELECT e.id, e.amount_cents, COALESCE(SUM(s.share_cents), 0)
		FROM expenses e
		LEFT JOIN expense_splits s ON s.expense_id = e.id
		WHERE e.id IN (` + placeholders(len(ids)) + `)
		GROUP BY e.id
		HAVING e.amount_cents <> COALESCE(SUM(s.share_cents), 0)
		LIMIT 1
	`
	var expenseID string
	var amount, shares int64
	err := tx.QueryRowContext(ctx, query, stringArgs(ids)...).Scan(&expenseID, &amount, &shares)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check split balance: %w", err)
	}
	return imbalance(expenseID, amount, shares)
}

func imbalance(expenseID string, amount, shares int64) error {
	slog.Error("Split balance guard rejected transaction",
		"expense_id", expenseID,
		"amount_cents", amount,
		"share_cents", shares,
	)
	return fmt.Errorf("expense %s: amount %d, shares %d: %w", expenseID, amount, shares, storage.ErrSplitImbalance)
}
