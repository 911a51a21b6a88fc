package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/google/uuid"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/events"
	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

// EnsureOptions selects what EnsureLedger creates besides the couple.
type EnsureOptions struct {
	// EnsureParticipant creates, or restores, the caller's participant row.
	EnsureParticipant bool

	// EnsureDefaultCategories seeds DefaultCategories into a couple that has
	// never had a category, deleted ones included.
	EnsureDefaultCategories bool
}

// InviteCodeLength is the length of generated couple invite codes.
const InviteCodeLength = 10

// inviteAlphabet leaves out 0/O and 1/I.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type defaultCategory struct {
	Name  string
	Color string
	Icon  string
}

// DefaultCategories is the set seeded into new ledgers.
var DefaultCategories = []defaultCategory{
	{Name: "Groceries", Color: "#4CAF50", Icon: "cart"},
	{Name: "Dining Out", Color: "#FF9800", Icon: "restaurant"},
	{Name: "Housing", Color: "#795548", Icon: "home"},
	{Name: "Utilities", Color: "#2196F3", Icon: "bolt"},
	{Name: "Transportation", Color: "#607D8B", Icon: "car"},
	{Name: "Entertainment", Color: "#9C27B0", Icon: "ticket"},
	{Name: "Health", Color: "#F44336", Icon: "heart"},
	{Name: "Shopping", Color: "#E91E63", Icon: "bag"},
	{Name: "Travel", Color: "#00BCD4", Icon: "plane"},
}

// EnsureLedger resolves the caller's couple, creating it with an owner
// membership on first use. It is safe to call repeatedly and concurrently:
// the common case is served from reads, and writes re-check everything
// inside one transaction.
func (s *Service) EnsureLedger(ctx context.Context, userID string, opts EnsureOptions) (*Scope, error) {
	scope, complete, err := s.lookupLedger(ctx, s.store, userID, opts)
	if err != nil {
		return nil, err
	}
	if complete {
		return scope, nil
	}

	var created bool
	err = s.inTx(ctx, "EnsureLedger", func(q storage.Queries) error {
		var err error
		scope, created, err = s.ensureLedgerTx(ctx, q, userID, opts)
		return err
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			slog.ErrorContext(ctx, "EnsureLedger failed", "user_id", userID, "error", err)
		}
		return nil, err
	}

	if created {
		slog.InfoContext(ctx, "Ledger created", "user_id", userID, "couple_id", scope.CoupleID)
		s.publish(ctx, events.New(events.LedgerCreated, scope.CoupleID, scope.CoupleID, userID))
	}
	return scope, nil
}

// lookupLedger resolves as much of the scope as exists and reports whether
// nothing needs to be written.
func (s *Service) lookupLedger(ctx context.Context, q storage.Queries, userID string, opts EnsureOptions) (*Scope, bool, error) {
	if _, err := q.GetUserByID(ctx, userID); err != nil {
		return nil, false, notFound(err, apperr.CodeUserNotFound, "user not found", "get user")
	}

	scope := &Scope{UserID: userID}
	member, err := q.FindActiveMembership(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return scope, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find membership: %w", err)
	}
	scope.CoupleID = member.CoupleID

	p, err := q.GetParticipantByUser(ctx, scope.CoupleID, userID, false)
	switch {
	case err == nil:
		scope.ParticipantID = p.ID
	case errors.Is(err, storage.ErrNotFound):
		if opts.EnsureParticipant {
			return scope, false, nil
		}
	default:
		return nil, false, fmt.Errorf("failed to get participant: %w", err)
	}

	if opts.EnsureDefaultCategories {
		n, err := q.CountCategories(ctx, scope.CoupleID, true)
		if err != nil {
			return nil, false, err
		}
		if n == 0 {
			return scope, false, nil
		}
	}
	return scope, true, nil
}

func (s *Service) ensureLedgerTx(ctx context.Context, q storage.Queries, userID string, opts EnsureOptions) (*Scope, bool, error) {
	user, err := q.GetUserByID(ctx, userID)
	if err != nil {
		return nil, false, notFound(err, apperr.CodeUserNotFound, "user not found", "get user")
	}
	now := s.unixNow()
	scope := &Scope{UserID: userID}

	created := false
	member, err := q.FindActiveMembership(ctx, userID)
	switch {
	case err == nil:
		scope.CoupleID = member.CoupleID
	case errors.Is(err, storage.ErrNotFound):
		couple, err := s.createCouple(ctx, q, user, now)
		if err != nil {
			return nil, false, err
		}
		scope.CoupleID = couple.ID
		created = true
	default:
		return nil, false, fmt.Errorf("failed to find membership: %w", err)
	}

	p, err := q.GetParticipantByUser(ctx, scope.CoupleID, userID, true)
	switch {
	case err == nil && p.DeletedAt == nil:
		scope.ParticipantID = p.ID
	case err == nil && opts.EnsureParticipant:
		p.DeletedAt = nil
		p.IsRegistered = true
		p.UpdatedAt = now
		if err := q.UpdateParticipant(ctx, p); err != nil {
			return nil, false, err
		}
		slog.InfoContext(ctx, "Participant restored", "couple_id", scope.CoupleID, "participant_id", p.ID)
		scope.ParticipantID = p.ID
	case errors.Is(err, storage.ErrNotFound) && opts.EnsureParticipant:
		p = participantForUser(scope.CoupleID, user, now)
		if err := q.CreateParticipant(ctx, p); err != nil {
			return nil, false, err
		}
		scope.ParticipantID = p.ID
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, false, fmt.Errorf("failed to get participant: %w", err)
	}

	if opts.EnsureDefaultCategories {
		if err := seedCategories(ctx, q, scope.CoupleID, now); err != nil {
			return nil, false, err
		}
	}
	return scope, created, nil
}

func (s *Service) createCouple(ctx context.Context, q storage.Queries, user *models.User, now int64) (*models.Couple, error) {
	code, err := newInviteCode()
	if err != nil {
		return nil, err
	}
	couple := &models.Couple{
		ID:         uuid.New().String(),
		Name:       user.DisplayName + "'s household",
		Status:     models.CoupleActive,
		InviteCode: code,
		CreatedBy:  user.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := q.CreateCouple(ctx, couple); err != nil {
		return nil, err
	}
	err = q.AddCoupleMember(ctx, &models.CoupleMember{
		CoupleID: couple.ID,
		UserID:   user.ID,
		Role:     models.RoleOwner,
		Status:   models.MemberActive,
		JoinedAt: now,
	})
	if err != nil {
		return nil, err
	}
	return couple, nil
}

func participantForUser(coupleID string, user *models.User, now int64) *models.Participant {
	userID := user.ID
	email := user.Email
	currency := user.DefaultCurrency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &models.Participant{
		ID:              uuid.New().String(),
		CoupleID:        coupleID,
		UserID:          &userID,
		DisplayName:     user.DisplayName,
		Email:           &email,
		IsRegistered:    true,
		DefaultCurrency: currency,
		Notifications:   models.DefaultNotifications(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// seedCategories inserts DefaultCategories unless the couple has ever had a
// category. Counting deleted rows keeps categories the couple removed on
// purpose from coming back.
func seedCategories(ctx context.Context, q storage.Queries, coupleID string, now int64) error {
	n, err := q.CountCategories(ctx, coupleID, true)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, dc := range DefaultCategories {
		icon := dc.Icon
		err := q.CreateCategory(ctx, &models.Category{
			ID:        uuid.New().String(),
			CoupleID:  coupleID,
			Name:      dc.Name,
			Color:     dc.Color,
			Icon:      &icon,
			IsDefault: true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "Default categories seeded", "couple_id", coupleID, "count", len(DefaultCategories))
	return nil
}

func newInviteCode() (string, error) {
	size := big.NewInt(int64(len(inviteAlphabet)))
	code := make([]byte, InviteCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		code[i] = inviteAlphabet[n.Int64()]
	}
	return string(code), nil
}
