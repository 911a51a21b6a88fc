package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

const groupColumns = `id, couple_id, name, color, description, default_currency, is_archived,
	owner_participant_id, created_at, updated_at, deleted_at`

func scanGroup(row rowScanner) (*models.ExpenseGroup, error) {
	g := &models.ExpenseGroup{}
	err := row.Scan(
		&g.ID,
		&g.CoupleID,
		&g.Name,
		&g.Color,
		&g.Description,
		&g.DefaultCurrency,
		&g.IsArchived,
		&g.OwnerParticipantID,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// CreateGroup inserts a group. Members are written separately.
func (q *queries) CreateGroup(ctx context.Context, g *models.ExpenseGroup) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO expense_groups (`+groupColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID,
		g.CoupleID,
		g.Name,
		g.Color,
		g.Description,
		g.DefaultCurrency,
		boolToInt(g.IsArchived),
		g.OwnerParticipantID,
		g.CreatedAt,
		g.UpdatedAt,
		g.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// UpdateGroup overwrites the descriptive columns of a live group.
func (q *queries) UpdateGroup(ctx context.Context, g *models.ExpenseGroup) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE expense_groups
		SET name = ?, color = ?, description = ?, default_currency = ?, is_archived = ?, updated_at = ?
		WHERE id = ? AND couple_id = ? AND deleted_at IS NULL`,
		g.Name,
		g.Color,
		g.Description,
		g.DefaultCurrency,
		boolToInt(g.IsArchived),
		g.UpdatedAt,
		g.ID,
		g.CoupleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return requireRow(res)
}

// GetGroup retrieves a live group of the couple without its members.
func (q *queries) GetGroup(ctx context.Context, coupleID, id string) (*models.ExpenseGroup, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM expense_groups WHERE id = ? AND couple_id = ? AND deleted_at IS NULL",
		id, coupleID,
	)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// ListGroups returns the live groups of a couple, newest first.
func (q *queries) ListGroups(ctx context.Context, coupleID string, includeArchived bool) ([]models.ExpenseGroup, error) {
	query := "SELECT " + groupColumns + " FROM expense_groups WHERE couple_id = ? AND deleted_at IS NULL"
	if !includeArchived {
		query += " AND is_archived = 0"
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := q.db.QueryContext(ctx, query, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []models.ExpenseGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// SoftDeleteGroup marks a live group as deleted.
func (q *queries) SoftDeleteGroup(ctx context.Context, coupleID, id string, at int64) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE expense_groups SET deleted_at = ?, updated_at = ? WHERE id = ? AND couple_id = ? AND deleted_at IS NULL",
		at, at, id, coupleID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return requireRow(res)
}

// ListGroupMembers returns all membership rows of a group, owner first.
func (q *queries) ListGroupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT group_id, participant_id, role, status, joined_at, updated_at
		FROM group_members
		WHERE group_id = ?
		ORDER BY CASE role WHEN 'owner' THEN 0 ELSE 1 END, joined_at, participant_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	members := []models.GroupMember{}
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.GroupID, &m.ParticipantID, &m.Role, &m.Status, &m.JoinedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

// UpsertGroupMember inserts a membership or reactivates an existing one.
// JoinedAt of an existing row is kept.
func (q *queries) UpsertGroupMember(ctx context.Context, m *models.GroupMember) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, participant_id, role, status, joined_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (group_id, participant_id)
		DO UPDATE SET role = excluded.role, status = excluded.status, updated_at = excluded.updated_at`,
		m.GroupID,
		m.ParticipantID,
		m.Role,
		m.Status,
		m.JoinedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group member: %w", err)
	}
	return nil
}

// SetGroupMemberStatus changes the status of one membership row.
func (q *queries) SetGroupMemberStatus(ctx context.Context, groupID, participantID string, status models.MemberStatus, at int64) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE group_members SET status = ?, updated_at = ? WHERE group_id = ? AND participant_id = ?",
		status, at, groupID, participantID,
	)
	if err != nil {
		return fmt.Errorf("failed to set group member status: %w", err)
	}
	return requireRow(res)
}

// LeaveAllGroups marks every active membership of the participant as left.
func (q *queries) LeaveAllGroups(ctx context.Context, participantID string, at int64) (int, error) {
	res, err := q.db.ExecContext(ctx,
		"UPDATE group_members SET status = 'left', updated_at = ? WHERE participant_id = ? AND status = 'active'",
		at, participantID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to leave groups: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}
