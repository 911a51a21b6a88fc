package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/events"
	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

// NotificationPatch changes only the preferences that are set.
type NotificationPatch struct {
	Expenses  *bool `json:"expenses,omitempty"`
	Invites   *bool `json:"invites,omitempty"`
	Reminders *bool `json:"reminders,omitempty"`
}

func (p *NotificationPatch) apply(prefs *models.NotificationPreferences) {
	if p == nil {
		return
	}
	if p.Expenses != nil {
		prefs.Expenses = *p.Expenses
	}
	if p.Invites != nil {
		prefs.Invites = *p.Invites
	}
	if p.Reminders != nil {
		prefs.Reminders = *p.Reminders
	}
}

// ParticipantInput creates a guest participant.
type ParticipantInput struct {
	DisplayName     string             `json:"displayName"`
	Email           *string            `json:"email,omitempty"`
	DefaultCurrency string             `json:"defaultCurrency,omitempty"`
	Notifications   *NotificationPatch `json:"notifications,omitempty"`
}

// ParticipantPatch updates a participant. Nil fields are left alone; an
// empty Email clears it.
type ParticipantPatch struct {
	DisplayName     *string            `json:"displayName,omitempty"`
	Email           *string            `json:"email,omitempty"`
	DefaultCurrency *string            `json:"defaultCurrency,omitempty"`
	Notifications   *NotificationPatch `json:"notifications,omitempty"`
}

func normalizeEmail(email *string) (*string, error) {
	email = optionalText(email)
	if email == nil {
		return nil, nil
	}
	at := strings.Index(*email, "@")
	if at <= 0 || at == len(*email)-1 {
		return nil, apperr.Validation("email", "email is not a valid address")
	}
	return email, nil
}

// checkEmailFree rejects an email already used by another live participant.
func (s *Service) checkEmailFree(ctx context.Context, coupleID string, email *string, excludeID string) error {
	if email == nil {
		return nil
	}
	_, err := s.store.FindParticipantByEmail(ctx, coupleID, *email, excludeID)
	if err == nil {
		return apperr.New(apperr.CodeParticipantEmailExists, "a participant with this email already exists").WithField("email")
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to check participant email: %w", err)
	}
	return nil
}

// CreateParticipant adds an unregistered participant to the caller's couple.
func (s *Service) CreateParticipant(ctx context.Context, scope *Scope, in ParticipantInput) (*models.Participant, error) {
	name, err := requireText("displayName", in.DisplayName)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	currency := models.DefaultCurrency
	if strings.TrimSpace(in.DefaultCurrency) != "" {
		if currency, err = normalizeCurrency("defaultCurrency", in.DefaultCurrency); err != nil {
			return nil, err
		}
	}
	if err := s.checkEmailFree(ctx, scope.CoupleID, email, ""); err != nil {
		return nil, err
	}

	now := s.unixNow()
	p := &models.Participant{
		ID:              uuid.New().String(),
		CoupleID:        scope.CoupleID,
		DisplayName:     name,
		Email:           email,
		IsRegistered:    false,
		DefaultCurrency: currency,
		Notifications:   models.DefaultNotifications(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	in.Notifications.apply(&p.Notifications)

	if err := s.store.CreateParticipant(ctx, p); err != nil {
		slog.ErrorContext(ctx, "CreateParticipant failed", "couple_id", scope.CoupleID, "error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "Participant created", "couple_id", scope.CoupleID, "participant_id", p.ID)
	s.publish(ctx, events.New(events.ParticipantChanged, scope.CoupleID, p.ID, scope.UserID))
	return p, nil
}

// GetParticipant returns a live participant of the caller's couple.
func (s *Service) GetParticipant(ctx context.Context, scope *Scope, id string) (*models.Participant, error) {
	p, err := s.store.GetParticipant(ctx, scope.CoupleID, id)
	if err != nil {
		return nil, notFound(err, apperr.CodeParticipantNotFound, "participant not found", "get participant")
	}
	return p, nil
}

// ListParticipants returns the live participants of the caller's couple.
func (s *Service) ListParticipants(ctx context.Context, scope *Scope) ([]models.Participant, error) {
	return s.store.ListParticipants(ctx, scope.CoupleID)
}

// UpdateParticipant applies a partial update.
func (s *Service) UpdateParticipant(ctx context.Context, scope *Scope, id string, patch ParticipantPatch) (*models.Participant, error) {
	p, err := s.GetParticipant(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if patch.DisplayName != nil {
		if p.DisplayName, err = requireText("displayName", *patch.DisplayName); err != nil {
			return nil, err
		}
	}
	if patch.Email != nil {
		email, err := normalizeEmail(patch.Email)
		if err != nil {
			return nil, err
		}
		if err := s.checkEmailFree(ctx, scope.CoupleID, email, p.ID); err != nil {
			return nil, err
		}
		p.Email = email
	}
	if patch.DefaultCurrency != nil {
		if p.DefaultCurrency, err = normalizeCurrency("defaultCurrency", *patch.DefaultCurrency); err != nil {
			return nil, err
		}
	}
	patch.Notifications.apply(&p.Notifications)
	p.UpdatedAt = s.unixNow()

	if err := s.store.UpdateParticipant(ctx, p); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.CodeParticipantNotFound, "participant not found")
		}
		slog.ErrorContext(ctx, "UpdateParticipant failed", "participant_id", id, "error", err)
		return nil, err
	}

	s.publish(ctx, events.New(events.ParticipantChanged, scope.CoupleID, p.ID, scope.UserID))
	return p, nil
}

// DeleteParticipant soft-deletes a participant and ends their group
// memberships. The caller's own participant can never be removed, and
// neither can the owner of a live group.
func (s *Service) DeleteParticipant(ctx context.Context, scope *Scope, id string) error {
	if id == scope.ParticipantID {
		return apperr.New(apperr.CodeCannotRemoveSelf, "you cannot remove yourself from the ledger")
	}

	var left int
	err := s.inTx(ctx, "DeleteParticipant", func(q storage.Queries) error {
		if _, err := q.GetParticipant(ctx, scope.CoupleID, id); err != nil {
			return notFound(err, apperr.CodeParticipantNotFound, "participant not found", "get participant")
		}
		// A group owner keeps an active membership for as long as the group lives.
		groups, err := q.ListGroups(ctx, scope.CoupleID, true)
		if err != nil {
			return err
		}
		for _, g := range groups {
			if g.OwnerParticipantID == id {
				return apperr.Newf(apperr.CodeParticipantOwnsGroup,
					"participant owns group %q; delete the group first", g.Name)
			}
		}
		now := s.unixNow()
		if err := q.SoftDeleteParticipant(ctx, scope.CoupleID, id, now); err != nil {
			return err
		}
		left, err = q.LeaveAllGroups(ctx, id, now)
		return err
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			slog.ErrorContext(ctx, "DeleteParticipant failed", "participant_id", id, "error", err)
		}
		return err
	}

	slog.InfoContext(ctx, "Participant deleted", "couple_id", scope.CoupleID, "participant_id", id, "groups_left", left)
	s.publish(ctx, events.New(events.ParticipantChanged, scope.CoupleID, id, scope.UserID))
	return nil
}
