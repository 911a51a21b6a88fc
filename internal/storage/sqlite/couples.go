package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

// CreateCouple inserts a new couple.
func (q *queries) CreateCouple(ctx context.Context, couple *models.Couple) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO couples (id, name, status, invite_code, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		couple.ID,
		couple.Name,
		couple.Status,
		couple.InviteCode,
		couple.CreatedBy,
		couple.CreatedAt,
		couple.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create couple: %w", err)
	}
	return nil
}

// GetCouple retrieves a couple by ID.
func (q *queries) GetCouple(ctx context.Context, id string) (*models.Couple, error) {
	couple := &models.Couple{}
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, status, invite_code, created_by, created_at, updated_at
		FROM couples WHERE id = ?`,
		id,
	).Scan(
		&couple.ID,
		&couple.Name,
		&couple.Status,
		&couple.InviteCode,
		&couple.CreatedBy,
		&couple.CreatedAt,
		&couple.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get couple: %w", err)
	}
	return couple, nil
}

// AddCoupleMember inserts a membership row.
func (q *queries) AddCoupleMember(ctx context.Context, member *models.CoupleMember) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO couple_members (couple_id, user_id, role, status, joined_at)
		VALUES (?, ?, ?, ?, ?)`,
		member.CoupleID,
		member.UserID,
		member.Role,
		member.Status,
		member.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add couple member: %w", err)
	}
	return nil
}

// FindActiveMembership returns the oldest active membership of the user in
// an active couple.
func (q *queries) FindActiveMembership(ctx context.Context, userID string) (*models.CoupleMember, error) {
	member := &models.CoupleMember{}
	err := q.db.QueryRowContext(ctx, `
		SELECT m.couple_id, m.user_id, m.role, m.status, m.joined_at
		FROM couple_members m
		JOIN couples c ON c.id = m.couple_id
		WHERE m.user_id = ? AND m.status = 'active' AND c.status = 'active'
		ORDER BY m.joined_at, m.couple_id
		LIMIT 1`,
		userID,
	).Scan(
		&member.CoupleID,
		&member.UserID,
		&member.Role,
		&member.Status,
		&member.JoinedAt,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return member, nil
}
