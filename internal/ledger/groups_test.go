package ledger

import (
	"context"
	"reflect"
	"testing"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

func TestPlanMembership(t *testing.T) {
	const now = 200
	member := func(id string, role models.MemberRole, status models.MemberStatus) models.GroupMember {
		return models.GroupMember{ParticipantID: id, Role: role, Status: status, JoinedAt: 100, UpdatedAt: 100}
	}
	upsert := func(id string, role models.MemberRole, joinedAt int64) models.GroupMember {
		return models.GroupMember{ParticipantID: id, Role: role, Status: models.MemberActive, JoinedAt: joinedAt, UpdatedAt: now}
	}

	tests := []struct {
		name     string
		existing []models.GroupMember
		desired  []string
		want     membershipPlan
	}{
		{
			name:    "new group",
			desired: []string{"owner", "b"},
			want: membershipPlan{Upserts: []models.GroupMember{
				upsert("owner", models.RoleOwner, now),
				upsert("b", models.RoleMember, now),
			}},
		},
		{
			name: "unchanged",
			existing: []models.GroupMember{
				member("owner", models.RoleOwner, models.MemberActive),
				member("b", models.RoleMember, models.MemberActive),
			},
			desired: []string{"b", "owner"},
			want:    membershipPlan{},
		},
		{
			name: "member leaves",
			existing: []models.GroupMember{
				member("owner", models.RoleOwner, models.MemberActive),
				member("b", models.RoleMember, models.MemberActive),
				member("c", models.RoleMember, models.MemberInvited),
			},
			desired: []string{"owner"},
			want:    membershipPlan{Leaves: []string{"b", "c"}},
		},
		{
			name: "left member rejoins",
			existing: []models.GroupMember{
				member("owner", models.RoleOwner, models.MemberActive),
				member("b", models.RoleMember, models.MemberLeft),
			},
			desired: []string{"owner", "b"},
			want: membershipPlan{Upserts: []models.GroupMember{
				upsert("b", models.RoleMember, 100),
			}},
		},
		{
			name: "left member stays left",
			existing: []models.GroupMember{
				member("owner", models.RoleOwner, models.MemberActive),
				member("b", models.RoleMember, models.MemberLeft),
			},
			desired: []string{"owner"},
			want:    membershipPlan{},
		},
		{
			name: "role corrected",
			existing: []models.GroupMember{
				member("owner", models.RoleMember, models.MemberActive),
				member("b", models.RoleOwner, models.MemberActive),
			},
			desired: []string{"owner", "b", "b"},
			want: membershipPlan{Upserts: []models.GroupMember{
				upsert("owner", models.RoleOwner, 100),
				upsert("b", models.RoleMember, 100),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := planMembership("owner", tt.existing, tt.desired, now)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("planMembership() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func memberStatus(g *models.ExpenseGroup) map[string]models.MemberStatus {
	status := make(map[string]models.MemberStatus, len(g.Members))
	for _, m := range g.Members {
		status[m.ParticipantID] = m.Status
	}
	return status
}

func TestGroups(t *testing.T) {
	env := newTestEnv(t, storage.ProfileFull)
	ctx := context.Background()
	c := env.newCouple(t, "alice@example.com")
	carol := env.addGuest(t, c.scope, "Carol")

	g, err := env.svc.CreateGroup(ctx, c.scope, GroupInput{
		Name:            "Holiday",
		Color:           ptr("#123abc"),
		DefaultCurrency: ptr("chf"),
		ParticipantIDs:  []string{c.guest},
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if g.OwnerParticipantID != c.me {
		t.Errorf("expected caller to own the group, got %s", g.OwnerParticipantID)
	}
	if g.Color == nil || *g.Color != "#123ABC" || g.DefaultCurrency == nil || *g.DefaultCurrency != "CHF" {
		t.Errorf("unexpected group fields: %+v", g)
	}
	if len(g.Members) != 2 || g.Members[0].ParticipantID != c.me || g.Members[0].Role != models.RoleOwner {
		t.Fatalf("expected owner first among 2 members, got %+v", g.Members)
	}

	t.Run("sync adds and removes", func(t *testing.T) {
		synced, err := env.svc.SyncGroupMembers(ctx, c.scope, g.ID, []string{c.me, carol.ID})
		if err != nil {
			t.Fatalf("SyncGroupMembers failed: %v", err)
		}
		want := map[string]models.MemberStatus{
			c.me:     models.MemberActive,
			c.guest:  models.MemberLeft,
			carol.ID: models.MemberActive,
		}
		if got := memberStatus(synced); !reflect.DeepEqual(got, want) {
			t.Errorf("members = %v, want %v", got, want)
		}
	})

	t.Run("owner must stay", func(t *testing.T) {
		before, err := env.svc.GetGroup(ctx, c.scope, g.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		_, err = env.svc.SyncGroupMembers(ctx, c.scope, g.ID, []string{c.guest, carol.ID})
		expectCode(t, err, apperr.CodeInvalidParticipants)

		after, err := env.svc.GetGroup(ctx, c.scope, g.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if !reflect.DeepEqual(memberStatus(before), memberStatus(after)) {
			t.Errorf("membership changed after rejected sync: %v -> %v", memberStatus(before), memberStatus(after))
		}
	})

	t.Run("foreign participant", func(t *testing.T) {
		other := env.newCouple(t, "dave@example.com")
		_, err := env.svc.SyncGroupMembers(ctx, c.scope, g.ID, []string{c.me, other.guest})
		expectCode(t, err, apperr.CodeInvalidParticipants)
	})

	t.Run("update with roster", func(t *testing.T) {
		updated, err := env.svc.UpdateGroup(ctx, c.scope, g.ID, GroupPatch{
			Name:           ptr("Summer holiday"),
			ParticipantIDs: []string{c.me, c.guest},
		})
		if err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		if updated.Name != "Summer holiday" {
			t.Errorf("expected renamed group, got %s", updated.Name)
		}
		want := map[string]models.MemberStatus{
			c.me:     models.MemberActive,
			c.guest:  models.MemberActive,
			carol.ID: models.MemberLeft,
		}
		if got := memberStatus(updated); !reflect.DeepEqual(got, want) {
			t.Errorf("members = %v, want %v", got, want)
		}
	})

	t.Run("update without roster keeps members", func(t *testing.T) {
		updated, err := env.svc.UpdateGroup(ctx, c.scope, g.ID, GroupPatch{Description: ptr("beach")})
		if err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		if memberStatus(updated)[c.guest] != models.MemberActive {
			t.Errorf("expected membership untouched, got %v", memberStatus(updated))
		}
	})

	t.Run("archive and list", func(t *testing.T) {
		if _, err := env.svc.UpdateGroup(ctx, c.scope, g.ID, GroupPatch{IsArchived: ptr(true)}); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		active, err := env.svc.ListGroups(ctx, c.scope, false)
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		all, err := env.svc.ListGroups(ctx, c.scope, true)
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		if len(active) != 0 || len(all) != 1 {
			t.Errorf("expected 0 active and 1 total, got %d and %d", len(active), len(all))
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := env.svc.DeleteGroup(ctx, c.scope, g.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		_, err := env.svc.GetGroup(ctx, c.scope, g.ID)
		expectCode(t, err, apperr.CodeGroupNotFound)
	})
}

func TestCreateGroupValidation(t *testing.T) {
	env := newTestEnv(t, storage.ProfileFull)
	ctx := context.Background()
	c := env.newCouple(t, "alice@example.com")

	_, err := env.svc.CreateGroup(ctx, c.scope, GroupInput{Name: ""})
	expectCode(t, err, apperr.CodeValidation)

	_, err = env.svc.CreateGroup(ctx, c.scope, GroupInput{Name: "Trip", ParticipantIDs: []string{"missing"}})
	expectCode(t, err, apperr.CodeInvalidParticipants)

	noParticipant := *c.scope
	noParticipant.ParticipantID = ""
	_, err = env.svc.CreateGroup(ctx, &noParticipant, GroupInput{Name: "Trip"})
	expectCode(t, err, apperr.CodeParticipantNotFound)
}
