package ledger

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/events"
	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

// GroupInput creates a group. The caller's participant becomes its owner
// and is always a member.
type GroupInput struct {
	Name            string   `json:"name"`
	Color           *string  `json:"color,omitempty"`
	Description     *string  `json:"description,omitempty"`
	DefaultCurrency *string  `json:"defaultCurrency,omitempty"`
	ParticipantIDs  []string `json:"participantIds,omitempty"`
}

// GroupPatch updates a group. A nil ParticipantIDs leaves membership alone.
type GroupPatch struct {
	Name            *string  `json:"name,omitempty"`
	Color           *string  `json:"color,omitempty"`
	Description     *string  `json:"description,omitempty"`
	DefaultCurrency *string  `json:"defaultCurrency,omitempty"`
	IsArchived      *bool    `json:"isArchived,omitempty"`
	ParticipantIDs  []string `json:"participantIds,omitempty"`
}

// membershipPlan is the set of writes that brings a group's membership to
// the desired roster.
type membershipPlan struct {
	Upserts []models.GroupMember
	Leaves  []string
}

// planMembership reconciles existing membership rows with the desired
// participant set. Desired participants are (re)activated, with the owner
// role reserved for ownerID; active or invited members missing from the set
// leave. The caller guarantees ownerID is desired.
func planMembership(ownerID string, existing []models.GroupMember, desired []string, now int64) membershipPlan {
	var plan membershipPlan

	current := make(map[string]models.GroupMember, len(existing))
	for _, m := range existing {
		current[m.ParticipantID] = m
	}

	wanted := make(map[string]bool, len(desired))
	for _, id := range desired {
		if wanted[id] {
			continue
		}
		wanted[id] = true

		role := models.RoleMember
		if id == ownerID {
			role = models.RoleOwner
		}
		m, ok := current[id]
		if ok && m.Status == models.MemberActive && m.Role == role {
			continue
		}
		joinedAt := now
		if ok {
			joinedAt = m.JoinedAt
		}
		plan.Upserts = append(plan.Upserts, models.GroupMember{
			ParticipantID: id,
			Role:          role,
			Status:        models.MemberActive,
			JoinedAt:      joinedAt,
			UpdatedAt:     now,
		})
	}

	for _, m := range existing {
		if !wanted[m.ParticipantID] && m.Status != models.MemberLeft {
			plan.Leaves = append(plan.Leaves, m.ParticipantID)
		}
	}
	slices.Sort(plan.Leaves)
	return plan
}

// desiredRoster validates a requested roster: it must contain the owner and
// every id, the owner's included, must be a live participant of the couple. It returns the
// roster without duplicates.
func (s *Service) desiredRoster(ctx context.Context, q storage.Queries, coupleID, ownerID string, ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	roster := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		roster = append(roster, id)
	}
	if !seen[ownerID] {
		return nil, apperr.New(apperr.CodeInvalidParticipants, "the group owner must remain a member").WithField("participantIds")
	}

	// The owner is counted too, so a deleted owner is never reactivated.
	n, err := q.CountParticipants(ctx, coupleID, roster)
	if err != nil {
		return nil, err
	}
	if n != len(roster) {
		return nil, apperr.New(apperr.CodeInvalidParticipants, "some participants do not belong to this ledger").WithField("participantIds")
	}
	return roster, nil
}

func applyMembershipPlan(ctx context.Context, q storage.Queries, groupID string, plan membershipPlan, now int64) error {
	for i := range plan.Upserts {
		m := plan.Upserts[i]
		m.GroupID = groupID
		if err := q.UpsertGroupMember(ctx, &m); err != nil {
			return err
		}
	}
	for _, id := range plan.Leaves {
		if err := q.SetGroupMemberStatus(ctx, groupID, id, models.MemberLeft, now); err != nil {
			return err
		}
	}
	return nil
}

func applyGroupFields(g *models.ExpenseGroup, name *string, color, description, currency *string) error {
	if name != nil {
		n, err := requireText("name", *name)
		if err != nil {
			return err
		}
		g.Name = n
	}
	if color != nil {
		if c := optionalText(color); c != nil {
			normalized, err := normalizeColor(*c)
			if err != nil {
				return err
			}
			g.Color = &normalized
		} else {
			g.Color = nil
		}
	}
	if description != nil {
		g.Description = optionalText(description)
	}
	if currency != nil {
		if c := optionalText(currency); c != nil {
			normalized, err := normalizeCurrency("defaultCurrency", *c)
			if err != nil {
				return err
			}
			g.DefaultCurrency = &normalized
		} else {
			g.DefaultCurrency = nil
		}
	}
	return nil
}

// CreateGroup creates a group owned by the caller's participant.
func (s *Service) CreateGroup(ctx context.Context, scope *Scope, in GroupInput) (*models.ExpenseGroup, error) {
	if scope.ParticipantID == "" {
		return nil, apperr.New(apperr.CodeParticipantNotFound, "caller has no participant in this ledger")
	}

	now := s.unixNow()
	g := &models.ExpenseGroup{
		ID:                 uuid.New().String(),
		CoupleID:           scope.CoupleID,
		OwnerParticipantID: scope.ParticipantID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := applyGroupFields(g, &in.Name, in.Color, in.Description, in.DefaultCurrency); err != nil {
		return nil, err
	}

	requested := append([]string{scope.ParticipantID}, in.ParticipantIDs...)
	roster, err := s.desiredRoster(ctx, s.store, scope.CoupleID, g.OwnerParticipantID, requested)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, "CreateGroup", func(q storage.Queries) error {
		if err := q.CreateGroup(ctx, g); err != nil {
			return err
		}
		return applyMembershipPlan(ctx, q, g.ID, planMembership(g.OwnerParticipantID, nil, roster, now), now)
	})
	if err != nil {
		slog.ErrorContext(ctx, "CreateGroup failed", "couple_id", scope.CoupleID, "error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "Group created", "couple_id", scope.CoupleID, "group_id", g.ID, "members", len(roster))
	s.publish(ctx, events.New(events.GroupChanged, scope.CoupleID, g.ID, scope.UserID))
	return s.GetGroup(ctx, scope, g.ID)
}

// GetGroup returns a live group with all its membership rows.
func (s *Service) GetGroup(ctx context.Context, scope *Scope, id string) (*models.ExpenseGroup, error) {
	g, err := s.store.GetGroup(ctx, scope.CoupleID, id)
	if err != nil {
		return nil, notFound(err, apperr.CodeGroupNotFound, "group not found", "get group")
	}
	if g.Members, err = s.store.ListGroupMembers(ctx, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}

// ListGroups returns the couple's live groups with their members.
func (s *Service) ListGroups(ctx context.Context, scope *Scope, includeArchived bool) ([]models.ExpenseGroup, error) {
	groups, err := s.store.ListGroups(ctx, scope.CoupleID, includeArchived)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].Members, err = s.store.ListGroupMembers(ctx, groups[i].ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// UpdateGroup applies a partial update and, when ParticipantIDs is set,
// reconciles membership in the same transaction.
func (s *Service) UpdateGroup(ctx context.Context, scope *Scope, id string, patch GroupPatch) (*models.ExpenseGroup, error) {
	g, err := s.GetGroup(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := applyGroupFields(g, patch.Name, patch.Color, patch.Description, patch.DefaultCurrency); err != nil {
		return nil, err
	}
	if patch.IsArchived != nil {
		g.IsArchived = *patch.IsArchived
	}

	var roster []string
	if patch.ParticipantIDs != nil {
		if roster, err = s.desiredRoster(ctx, s.store, scope.CoupleID, g.OwnerParticipantID, patch.ParticipantIDs); err != nil {
			return nil, err
		}
	}

	now := s.unixNow()
	g.UpdatedAt = now
	err = s.inTx(ctx, "UpdateGroup", func(q storage.Queries) error {
		if err := q.UpdateGroup(ctx, g); err != nil {
			return notFound(err, apperr.CodeGroupNotFound, "group not found", "update group")
		}
		if roster == nil {
			return nil
		}
		return s.syncMembersTx(ctx, q, g, roster, now)
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			slog.ErrorContext(ctx, "UpdateGroup failed", "group_id", id, "error", err)
		}
		return nil, err
	}

	s.publish(ctx, events.New(events.GroupChanged, scope.CoupleID, g.ID, scope.UserID))
	return s.GetGroup(ctx, scope, g.ID)
}

// SyncGroupMembers makes participantIDs the active roster of the group.
// The owner must be part of it; nothing is written otherwise.
func (s *Service) SyncGroupMembers(ctx context.Context, scope *Scope, groupID string, participantIDs []string) (*models.ExpenseGroup, error) {
	g, err := s.GetGroup(ctx, scope, groupID)
	if err != nil {
		return nil, err
	}
	roster, err := s.desiredRoster(ctx, s.store, scope.CoupleID, g.OwnerParticipantID, participantIDs)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, "SyncGroupMembers", func(q storage.Queries) error {
		return s.syncMembersTx(ctx, q, g, roster, s.unixNow())
	})
	if err != nil {
		slog.ErrorContext(ctx, "SyncGroupMembers failed", "group_id", groupID, "error", err)
		return nil, err
	}

	s.publish(ctx, events.New(events.GroupChanged, scope.CoupleID, g.ID, scope.UserID))
	return s.GetGroup(ctx, scope, g.ID)
}

func (s *Service) syncMembersTx(ctx context.Context, q storage.Queries, g *models.ExpenseGroup, roster []string, now int64) error {
	existing, err := q.ListGroupMembers(ctx, g.ID)
	if err != nil {
		return err
	}
	plan := planMembership(g.OwnerParticipantID, existing, roster, now)
	if err := applyMembershipPlan(ctx, q, g.ID, plan, now); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Group members synced",
		"group_id", g.ID,
		"upserts", len(plan.Upserts),
		"left", len(plan.Leaves))
	return nil
}

// DeleteGroup soft-deletes a group. Expenses keep their group reference.
func (s *Service) DeleteGroup(ctx context.Context, scope *Scope, id string) error {
	if err := s.store.SoftDeleteGroup(ctx, scope.CoupleID, id, s.unixNow()); err != nil {
		return notFound(err, apperr.CodeGroupNotFound, "group not found", "delete group")
	}
	slog.InfoContext(ctx, "Group deleted", "couple_id", scope.CoupleID, "group_id", id)
	s.publish(ctx, events.New(events.GroupChanged, scope.CoupleID, id, scope.UserID))
	return nil
}
