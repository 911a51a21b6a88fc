package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

const participantColumns = `id, couple_id, user_id, display_name, email, is_registered, default_currency,
	notify_expenses, notify_invites, notify_reminders, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	p := &models.Participant{}
	err := row.Scan(
		&p.ID,
		&p.CoupleID,
		&p.UserID,
		&p.DisplayName,
		&p.Email,
		&p.IsRegistered,
		&p.DefaultCurrency,
		&p.Notifications.Expenses,
		&p.Notifications.Invites,
		&p.Notifications.Reminders,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (q *queries) getParticipant(ctx context.Context, where string, args ...any) (*models.Participant, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+participantColumns+" FROM participants WHERE "+where, args...)
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// CreateParticipant inserts a participant.
func (q *queries) CreateParticipant(ctx context.Context, p *models.Participant) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO participants (`+participantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.CoupleID,
		p.UserID,
		p.DisplayName,
		p.Email,
		boolToInt(p.IsRegistered),
		p.DefaultCurrency,
		boolToInt(p.Notifications.Expenses),
		boolToInt(p.Notifications.Invites),
		boolToInt(p.Notifications.Reminders),
		p.CreatedAt,
		p.UpdatedAt,
		p.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

// UpdateParticipant overwrites the mutable columns of a participant.
func (q *queries) UpdateParticipant(ctx context.Context, p *models.Participant) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE participants
		SET user_id = ?, display_name = ?, email = ?, is_registered = ?, default_currency = ?,
			notify_expenses = ?, notify_invites = ?, notify_reminders = ?, updated_at = ?, deleted_at = ?
		WHERE id = ? AND couple_id = ?`,
		p.UserID,
		p.DisplayName,
		p.Email,
		boolToInt(p.IsRegistered),
		p.DefaultCurrency,
		boolToInt(p.Notifications.Expenses),
		boolToInt(p.Notifications.Invites),
		boolToInt(p.Notifications.Reminders),
		p.UpdatedAt,
		p.DeletedAt,
		p.ID,
		p.CoupleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return requireRow(res)
}

// GetParticipant retrieves a live participant of the couple.
func (q *queries) GetParticipant(ctx context.Context, coupleID, id string) (*models.Participant, error) {
	return q.getParticipant(ctx, "id = ? AND couple_id = ? AND deleted_at IS NULL", id, coupleID)
}

// GetParticipantByUser retrieves the participant linked to a user.
func (q *queries) GetParticipantByUser(ctx context.Context, coupleID, userID string, includeDeleted bool) (*models.Participant, error) {
	where := "couple_id = ? AND user_id = ?"
	if !includeDeleted {
		where += " AND deleted_at IS NULL"
	}
	return q.getParticipant(ctx, where, coupleID, userID)
}

// ListParticipants returns the live participants of a couple, oldest first.
func (q *queries) ListParticipants(ctx context.Context, coupleID string) ([]models.Participant, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE couple_id = ? AND deleted_at IS NULL ORDER BY created_at, id",
		coupleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

// FindParticipantByEmail finds a live participant by email, ignoring case.
func (q *queries) FindParticipantByEmail(ctx context.Context, coupleID, email, excludeID string) (*models.Participant, error) {
	return q.getParticipant(ctx,
		"couple_id = ? AND lower(email) = lower(?) AND id <> ? AND deleted_at IS NULL LIMIT 1",
		coupleID, email, excludeID,
	)
}

// CountParticipants counts the distinct ids that name live participants of the couple.
func (q *queries) CountParticipants(ctx context.Context, coupleID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{coupleID}, stringArgs(ids)...)
	var count int
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participants WHERE couple_id = ? AND deleted_at IS NULL AND id IN ("+placeholders(len(ids))+")",
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// SoftDeleteParticipant marks a live participant as deleted.
func (q *queries) SoftDeleteParticipant(ctx context.Context, coupleID, id string, at int64) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE participants SET deleted_at = ?, updated_at = ? WHERE id = ? AND couple_id = ? AND deleted_at IS NULL",
		at, at, id, coupleID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return requireRow(res)
}

// requireRow maps an UPDATE that matched nothing to storage.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
