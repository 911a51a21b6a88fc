package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/events"
	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

// DefaultCategoryColor is used when a category is created without a color.
const DefaultCategoryColor = "#9E9E9E"

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CategoryInput creates a category.
type CategoryInput struct {
	Name  string  `json:"name"`
	Color string  `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

// CategoryPatch updates a category; nil fields are left alone.
type CategoryPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

func normalizeColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if !hexColor.MatchString(color) {
		return "", apperr.Validation("color", "color must be a hex color like #RRGGBB")
	}
	return strings.ToUpper(color), nil
}

// checkNameFree compares names case-insensitively among live categories.
func (s *Service) checkNameFree(ctx context.Context, coupleID, name, excludeID string) error {
	_, err := s.store.FindCategoryByName(ctx, coupleID, name, excludeID)
	if err == nil {
		return apperr.Newf(apperr.CodeCategoryExists, "category %q already exists", name).WithField("name")
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to check category name: %w", err)
	}
	return nil
}

// CreateCategory adds a category to the caller's couple.
func (s *Service) CreateCategory(ctx context.Context, scope *Scope, in CategoryInput) (*models.Category, error) {
	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	color := DefaultCategoryColor
	if strings.TrimSpace(in.Color) != "" {
		if color, err = normalizeColor(in.Color); err != nil {
			return nil, err
		}
	}
	if err := s.checkNameFree(ctx, scope.CoupleID, name, ""); err != nil {
		return nil, err
	}

	now := s.unixNow()
	c := &models.Category{
		ID:        uuid.New().String(),
		CoupleID:  scope.CoupleID,
		Name:      name,
		Color:     color,
		Icon:      optionalText(in.Icon),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		slog.ErrorContext(ctx, "CreateCategory failed", "couple_id", scope.CoupleID, "error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "Category created", "couple_id", scope.CoupleID, "category_id", c.ID, "name", c.Name)
	s.publish(ctx, events.New(events.CategoryChanged, scope.CoupleID, c.ID, scope.UserID))
	return c, nil
}

// GetCategory returns a live category of the caller's couple.
func (s *Service) GetCategory(ctx context.Context, scope *Scope, id string) (*models.Category, error) {
	c, err := s.store.GetCategory(ctx, scope.CoupleID, id)
	if err != nil {
		return nil, notFound(err, apperr.CodeCategoryNotFound, "category not found", "get category")
	}
	return c, nil
}

// ListCategories returns the live categories of the caller's couple.
func (s *Service) ListCategories(ctx context.Context, scope *Scope) ([]models.Category, error) {
	return s.store.ListCategories(ctx, scope.CoupleID)
}

// UpdateCategory applies a partial update.
func (s *Service) UpdateCategory(ctx context.Context, scope *Scope, id string, patch CategoryPatch) (*models.Category, error) {
	c, err := s.GetCategory(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name, err := requireText("name", *patch.Name)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(name, c.Name) {
			if err := s.checkNameFree(ctx, scope.CoupleID, name, c.ID); err != nil {
				return nil, err
			}
		}
		c.Name = name
	}
	if patch.Color != nil {
		if c.Color, err = normalizeColor(*patch.Color); err != nil {
			return nil, err
		}
	}
	if patch.Icon != nil {
		c.Icon = optionalText(patch.Icon)
	}
	c.UpdatedAt = s.unixNow()

	if err := s.store.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.CodeCategoryNotFound, "category not found")
		}
		slog.ErrorContext(ctx, "UpdateCategory failed", "category_id", id, "error", err)
		return nil, err
	}

	s.publish(ctx, events.New(events.CategoryChanged, scope.CoupleID, c.ID, scope.UserID))
	return c, nil
}

// DeleteCategory soft-deletes a category no live expense refers to.
func (s *Service) DeleteCategory(ctx context.Context, scope *Scope, id string) error {
	err := s.inTx(ctx, "DeleteCategory", func(q storage.Queries) error {
		if _, err := q.GetCategory(ctx, scope.CoupleID, id); err != nil {
			return notFound(err, apperr.CodeCategoryNotFound, "category not found", "get category")
		}
		inUse, err := q.CategoryInUse(ctx, scope.CoupleID, id)
		if err != nil {
			return err
		}
		if inUse {
			return apperr.New(apperr.CodeCategoryInUse, "category is used by existing expenses")
		}
		return q.SoftDeleteCategory(ctx, scope.CoupleID, id, s.unixNow())
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			slog.ErrorContext(ctx, "DeleteCategory failed", "category_id", id, "error", err)
		}
		return err
	}

	slog.InfoContext(ctx, "Category deleted", "couple_id", scope.CoupleID, "category_id", id)
	s.publish(ctx, events.New(events.CategoryChanged, scope.CoupleID, id, scope.UserID))
	return nil
}
