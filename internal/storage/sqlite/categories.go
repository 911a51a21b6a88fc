package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

const categoryColumns = `id, couple_id, name, color, icon, is_default, created_at, updated_at, deleted_at`

func scanCategory(row rowScanner) (*models.Category, error) {
	c := &models.Category{}
	err := row.Scan(
		&c.ID,
		&c.CoupleID,
		&c.Name,
		&c.Color,
		&c.Icon,
		&c.IsDefault,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (q *queries) getCategory(ctx context.Context, where string, args ...any) (*models.Category, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE "+where, args...)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// CreateCategory inserts a category.
func (q *queries) CreateCategory(ctx context.Context, c *models.Category) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.CoupleID,
		c.Name,
		c.Color,
		c.Icon,
		boolToInt(c.IsDefault),
		c.CreatedAt,
		c.UpdatedAt,
		c.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// UpdateCategory overwrites name, color and icon of a live category.
func (q *queries) UpdateCategory(ctx context.Context, c *models.Category) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, color = ?, icon = ?, updated_at = ?
		WHERE id = ? AND couple_id = ? AND deleted_at IS NULL`,
		c.Name,
		c.Color,
		c.Icon,
		c.UpdatedAt,
		c.ID,
		c.CoupleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireRow(res)
}

// GetCategory retrieves a live category of the couple.
func (q *queries) GetCategory(ctx context.Context, coupleID, id string) (*models.Category, error) {
	return q.getCategory(ctx, "id = ? AND couple_id = ? AND deleted_at IS NULL", id, coupleID)
}

// ListCategories returns the live categories of a couple ordered by name.
func (q *queries) ListCategories(ctx context.Context, coupleID string) ([]models.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE couple_id = ? AND deleted_at IS NULL ORDER BY lower(name), id",
		coupleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// CountCategories counts the couple's categories.
func (q *queries) CountCategories(ctx context.Context, coupleID string, includeDeleted bool) (int, error) {
	query := "SELECT COUNT(*) FROM categories WHERE couple_id = ?"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	var count int
	if err := q.db.QueryRowContext(ctx, query, coupleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return count, nil
}

// FindCategoryByName finds a live category by case-insensitive name.
func (q *queries) FindCategoryByName(ctx context.Context, coupleID, name, excludeID string) (*models.Category, error) {
	return q.getCategory(ctx,
		"couple_id = ? AND lower(name) = lower(?) AND id <> ? AND deleted_at IS NULL LIMIT 1",
		coupleID, name, excludeID,
	)
}

// CategoryInUse reports whether any live expense of the couple references the category.
func (q *queries) CategoryInUse(ctx context.Context, coupleID, id string) (bool, error) {
	var inUse bool
	err := q.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM expenses WHERE couple_id = ? AND category_id = ? AND deleted_at IS NULL)",
		coupleID, id,
	).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("failed to check category usage: %w", err)
	}
	return inUse, nil
}

// SoftDeleteCategory marks a live category as deleted.
func (q *queries) SoftDeleteCategory(ctx context.Context, coupleID, id string, at int64) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE categories SET deleted_at = ?, updated_at = ? WHERE id = ? AND couple_id = ? AND deleted_at IS NULL",
		at, at, id, coupleID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return requireRow(res)
}
