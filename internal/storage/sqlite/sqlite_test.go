package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

func newTestStore(t *testing.T, profile storage.Profile) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "ledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"), profile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// fixture is a couple with two guest participants.
type fixture struct {
	user      *models.User
	couple    *models.Couple
	alice     *models.Participant
	bob       *models.Participant
	groceries *models.Category
}

func seedCouple(t *testing.T, store *SQLiteStore, email string) fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Unix()

	user := models.NewUser(email, "Alice", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	couple := &models.Couple{
		ID:         uuid.New().String(),
		Name:       "Home",
		Status:     models.CoupleActive,
		InviteCode: uuid.New().String()[:10],
		CreatedBy:  user.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := store.CreateCouple(ctx, couple); err != nil {
		t.Fatalf("CreateCouple failed: %v", err)
	}

	participant := func(name string) *models.Participant {
		p := &models.Participant{
			ID:              uuid.New().String(),
			CoupleID:        couple.ID,
			DisplayName:     name,
			DefaultCurrency: models.DefaultCurrency,
			Notifications:   models.DefaultNotifications(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := store.CreateParticipant(ctx, p); err != nil {
			t.Fatalf("CreateParticipant failed: %v", err)
		}
		return p
	}

	category := &models.Category{
		ID:        uuid.New().String(),
		CoupleID:  couple.ID,
		Name:      "Groceries",
		Color:     "#4CAF50",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateCategory(ctx, category); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}

	return fixture{
		user:      user,
		couple:    couple,
		alice:     participant("Alice"),
		bob:       participant("Bob"),
		groceries: category,
	}
}

func (f fixture) expense(amount int64, description, date string) *models.Expense {
	now := time.Now().Unix()
	return &models.Expense{
		ID:                  uuid.New().String(),
		CoupleID:            f.couple.ID,
		CreatedBy:           f.user.ID,
		PaidByParticipantID: f.alice.ID,
		Description:         description,
		AmountCents:         amount,
		Currency:            "EUR",
		Date:                date,
		SplitType:           models.SplitCustom,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (f fixture) splits(aliceCents, bobCents int64) []models.ExpenseSplit {
	return []models.ExpenseSplit{
		{ParticipantID: f.alice.ID, ShareCents: aliceCents},
		{ParticipantID: f.bob.ID, ShareCents: bobCents},
	}
}

// createBalanced commits an expense with alice and bob splitting it.
func createBalanced(t *testing.T, store *SQLiteStore, e *models.Expense, splits []models.ExpenseSplit) {
	t.Helper()
	err := store.InTx(context.Background(), func(q storage.Queries) error {
		if err := q.CreateExpense(context.Background(), e); err != nil {
			return err
		}
		return q.InsertSplits(context.Background(), e.ID, splits)
	})
	if err != nil {
		t.Fatalf("create expense failed: %v", err)
	}
}

func TestBalanceGuard(t *testing.T) {
	for _, profile := range []storage.Profile{storage.ProfileFull, storage.ProfileLite} {
		t.Run(profile.Name, func(t *testing.T) {
			store := newTestStore(t, profile)
			f := seedCouple(t, store, "guard@example.com")
			ctx := context.Background()

			t.Run("unbalanced create is rolled back", func(t *testing.T) {
				e := f.expense(5000, "Dinner", "2024-03-01")
				err := store.InTx(ctx, func(q storage.Queries) error {
					if err := q.CreateExpense(ctx, e); err != nil {
						return err
					}
					return q.InsertSplits(ctx, e.ID, []models.ExpenseSplit{{ParticipantID: f.alice.ID, ShareCents: 3000}})
				})
				if !errors.Is(err, storage.ErrSplitImbalance) {
					t.Fatalf("Expected ErrSplitImbalance, got %v", err)
				}
				if _, err := store.GetExpense(ctx, f.couple.ID, e.ID); !errors.Is(err, storage.ErrNotFound) {
					t.Errorf("Expected expense to be rolled back, got %v", err)
				}
			})

			t.Run("replace-all passes through zero-sum state", func(t *testing.T) {
				e := f.expense(12500, "Groceries", "2024-03-02")
				createBalanced(t, store, e, f.splits(6250, 6250))

				err := store.InTx(ctx, func(q storage.Queries) error {
					e.AmountCents = 15000
					if err := q.UpdateExpense(ctx, e, 0); err != nil {
						return err
					}
					if err := q.DeleteSplits(ctx, e.ID); err != nil {
						return err
					}
					return q.InsertSplits(ctx, e.ID, f.splits(5000, 10000))
				})
				if err != nil {
					t.Fatalf("Replace-all update failed: %v", err)
				}

				got, err := store.GetExpense(ctx, f.couple.ID, e.ID)
				if err != nil {
					t.Fatalf("GetExpense failed: %v", err)
				}
				if got.AmountCents != 15000 || len(got.Splits) != 2 {
					t.Fatalf("Unexpected expense after update: %+v", got)
				}
				if got.Version != 2 {
					t.Errorf("Expected version 2, got %d", got.Version)
				}
			})

			t.Run("amount change without new splits is rolled back", func(t *testing.T) {
				e := f.expense(10000, "Gas", "2024-03-03")
				createBalanced(t, store, e, f.splits(5000, 5000))

				err := store.InTx(ctx, func(q storage.Queries) error {
					changed := *e
					changed.AmountCents = 12000
					return q.UpdateExpense(ctx, &changed, 0)
				})
				if !errors.Is(err, storage.ErrSplitImbalance) {
					t.Fatalf("Expected ErrSplitImbalance, got %v", err)
				}

				got, err := store.GetExpense(ctx, f.couple.ID, e.ID)
				if err != nil {
					t.Fatalf("GetExpense failed: %v", err)
				}
				if got.AmountCents != 10000 {
					t.Errorf("Expected amount to stay 10000, got %d", got.AmountCents)
				}
			})
		})
	}
}

// TestDeferredGuardRawCommit bypasses InTx and checks that the database
// itself refuses to commit an unbalanced expense.
func TestDeferredGuardRawCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("full profile rejects at commit", func(t *testing.T) {
		store := newTestStore(t, storage.ProfileFull)
		f := seedCouple(t, store, "raw@example.com")
		e := f.expense(5000, "Bypass", "2024-04-01")

		conn, err := store.db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn failed: %v", err)
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, "BEGIN"); err != nil {
			t.Fatalf("BEGIN failed: %v", err)
		}
		q := &queries{db: conn}
		if err := q.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		// Statements succeed individually; only the commit is checked.
		if err := q.InsertSplits(ctx, e.ID, []models.ExpenseSplit{{ParticipantID: f.alice.ID, ShareCents: 3000}}); err != nil {
			t.Fatalf("InsertSplits failed: %v", err)
		}

		if _, err := conn.ExecContext(ctx, "COMMIT"); err == nil {
			t.Fatal("Expected COMMIT to fail for unbalanced expense")
		}
		if _, err := conn.ExecContext(ctx, "ROLLBACK"); err != nil {
			t.Fatalf("ROLLBACK failed: %v", err)
		}

		if _, err := store.GetExpense(ctx, f.couple.ID, e.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected no committed expense, got %v", err)
		}
	})

	t.Run("lite profile commits and audit reports it", func(t *testing.T) {
		store := newTestStore(t, storage.ProfileLite)
		f := seedCouple(t, store, "lite@example.com")
		e := f.expense(5000, "Bypass", "2024-04-01")

		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if err := store.InsertSplits(ctx, e.ID, []models.ExpenseSplit{{ParticipantID: f.alice.ID, ShareCents: 3000}}); err != nil {
			t.Fatalf("InsertSplits failed: %v", err)
		}

		violations, err := store.AuditSplits(ctx)
		if err != nil {
			t.Fatalf("AuditSplits failed: %v", err)
		}
		if len(violations) != 1 || violations[0].ExpenseID != e.ID {
			t.Fatalf("Expected one violation for %s, got %+v", e.ID, violations)
		}
		if violations[0].ShareCents != 3000 || violations[0].AmountCents != 5000 {
			t.Errorf("Unexpected violation totals: %+v", violations[0])
		}
	})
}

func TestAuditSplitsClean(t *testing.T) {
	store := newTestStore(t, storage.ProfileFull)
	f := seedCouple(t, store, "audit@example.com")
	createBalanced(t, store, f.expense(12500, "Dinner", "2024-03-01"), f.splits(6250, 6250))

	violations, err := store.AuditSplits(context.Background())
	if err != nil {
		t.Fatalf("AuditSplits failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("Expected no violations, got %+v", violations)
	}
}

func TestExpenseFilterAndStatistics(t *testing.T) {
	store := newTestStore(t, storage.ProfileFull)
	f := seedCouple(t, store, "filter@example.com")
	other := seedCouple(t, store, "other@example.com")
	ctx := context.Background()

	groceries := f.expense(4000, "Weekly groceries", "2024-05-01")
	groceries.CategoryID = &f.groceries.ID
	createBalanced(t, store, groceries, f.splits(2000, 2000))

	rent := f.expense(100000, "Rent", "2024-05-03")
	rent.PaidByParticipantID = f.bob.ID
	createBalanced(t, store, rent, f.splits(50000, 50000))

	snacks := f.expense(600, "Snacks 100%_off", "2024-05-10")
	snacks.CategoryID = &f.groceries.ID
	createBalanced(t, store, snacks, f.splits(600, 0))

	deleted := f.expense(9999, "Deleted groceries", "2024-05-04")
	createBalanced(t, store, deleted, f.splits(9999, 0))
	if err := store.SoftDeleteExpense(ctx, f.couple.ID, deleted.ID, time.Now().Unix()); err != nil {
		t.Fatalf("SoftDeleteExpense failed: %v", err)
	}

	createBalanced(t, store, other.expense(7000, "Other couple groceries", "2024-05-02"), other.splits(3500, 3500))

	minAmount := int64(1000)
	tests := []struct {
		name      string
		filter    models.ExpenseFilter
		wantIDs   []string
		wantTotal int64
	}{
		{
			name:      "no filter returns live expenses newest first",
			wantIDs:   []string{snacks.ID, rent.ID, groceries.ID},
			wantTotal: 104600,
		},
		{
			name:      "category",
			filter:    models.ExpenseFilter{CategoryID: f.groceries.ID},
			wantIDs:   []string{snacks.ID, groceries.ID},
			wantTotal: 4600,
		},
		{
			name:      "payer",
			filter:    models.ExpenseFilter{PaidByParticipantID: f.bob.ID},
			wantIDs:   []string{rent.ID},
			wantTotal: 100000,
		},
		{
			name:      "date range is inclusive",
			filter:    models.ExpenseFilter{DateFrom: "2024-05-01", DateTo: "2024-05-03"},
			wantIDs:   []string{rent.ID, groceries.ID},
			wantTotal: 104000,
		},
		{
			name:      "min amount",
			filter:    models.ExpenseFilter{MinAmountCents: &minAmount},
			wantIDs:   []string{rent.ID, groceries.ID},
			wantTotal: 104000,
		},
		{
			name:      "search ignores case",
			filter:    models.ExpenseFilter{Search: "GROCER"},
			wantIDs:   []string{groceries.ID},
			wantTotal: 4000,
		},
		{
			name:      "search treats wildcards literally",
			filter:    models.ExpenseFilter{Search: "100%_"},
			wantIDs:   []string{snacks.ID},
			wantTotal: 600,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expenses, err := store.ListExpenses(ctx, f.couple.ID, tt.filter)
			if err != nil {
				t.Fatalf("ListExpenses failed: %v", err)
			}
			if len(expenses) != len(tt.wantIDs) {
				t.Fatalf("Expected %d expenses, got %d", len(tt.wantIDs), len(expenses))
			}
			for i, id := range tt.wantIDs {
				if expenses[i].ID != id {
					t.Errorf("Expense %d: expected %s, got %s (%s)", i, id, expenses[i].ID, expenses[i].Description)
				}
				if len(expenses[i].Splits) != 2 {
					t.Errorf("Expense %d: expected 2 splits, got %d", i, len(expenses[i].Splits))
				}
			}

			stats, err := store.ExpenseStatistics(ctx, f.couple.ID, tt.filter)
			if err != nil {
				t.Fatalf("ExpenseStatistics failed: %v", err)
			}
			if stats.TotalCents != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, stats.TotalCents)
			}
			if stats.TransactionCount != int64(len(tt.wantIDs)) {
				t.Errorf("Expected count %d, got %d", len(tt.wantIDs), stats.TransactionCount)
			}
		})
	}

	t.Run("limit and offset", func(t *testing.T) {
		page, err := store.ListExpenses(ctx, f.couple.ID, models.ExpenseFilter{Limit: 2, Offset: 1})
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(page) != 2 || page[0].ID != rent.ID || page[1].ID != groceries.ID {
			t.Errorf("Unexpected page: %+v", page)
		}
	})

	t.Run("statistics breakdowns", func(t *testing.T) {
		stats, err := store.ExpenseStatistics(ctx, f.couple.ID, models.ExpenseFilter{})
		if err != nil {
			t.Fatalf("ExpenseStatistics failed: %v", err)
		}

		if len(stats.ByCategory) != 2 {
			t.Fatalf("Expected 2 category buckets, got %+v", stats.ByCategory)
		}
		if stats.ByCategory[0].CategoryID != nil || stats.ByCategory[0].TotalCents != 100000 {
			t.Errorf("Expected uncategorized rent first, got %+v", stats.ByCategory[0])
		}
		if stats.ByCategory[1].Name != "Groceries" || stats.ByCategory[1].TotalCents != 4600 || stats.ByCategory[1].Count != 2 {
			t.Errorf("Unexpected groceries bucket: %+v", stats.ByCategory[1])
		}

		byID := make(map[string]models.ParticipantTotal)
		for _, pt := range stats.ByParticipant {
			byID[pt.ParticipantID] = pt
		}
		if got := byID[f.alice.ID]; got.PaidCents != 4600 || got.ShareCents != 52600 || got.PaidCount != 2 {
			t.Errorf("Unexpected alice totals: %+v", got)
		}
		if got := byID[f.bob.ID]; got.PaidCents != 100000 || got.ShareCents != 52000 || got.PaidCount != 1 {
			t.Errorf("Unexpected bob totals: %+v", got)
		}
	})
}

func TestTenantScoping(t *testing.T) {
	store := newTestStore(t, storage.ProfileFull)
	a := seedCouple(t, store, "a@example.com")
	b := seedCouple(t, store, "b@example.com")
	ctx := context.Background()

	e := a.expense(12500, "Dinner", "2024-03-01")
	createBalanced(t, store, e, a.splits(6250, 6250))

	if _, err := store.GetExpense(ctx, b.couple.ID, e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other couple, got %v", err)
	}
	if err := store.SoftDeleteExpense(ctx, b.couple.ID, e.ID, time.Now().Unix()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting from other couple, got %v", err)
	}
	if _, err := store.GetCategory(ctx, b.couple.ID, a.groceries.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other couple's category, got %v", err)
	}
	n, err := store.CountParticipants(ctx, b.couple.ID, []string{a.alice.ID, a.bob.ID})
	if err != nil {
		t.Fatalf("CountParticipants failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 participants visible to other couple, got %d", n)
	}
}

func TestUpdateExpenseVersion(t *testing.T) {
	store := newTestStore(t, storage.ProfileFull)
	f := seedCouple(t, store, "version@example.com")
	ctx := context.Background()

	e := f.expense(1000, "Coffee", "2024-03-01")
	createBalanced(t, store, e, f.splits(500, 500))

	e.Description = "Coffee beans"
	if err := store.UpdateExpense(ctx, e, 1); err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}
	if e.Version != 2 {
		t.Errorf("Expected version 2, got %d", e.Version)
	}

	stale := *e
	if err := store.UpdateExpense(ctx, &stale, 1); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict, got %v", err)
	}

	missing := *e
	missing.ID = uuid.New().String()
	if err := store.UpdateExpense(ctx, &missing, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSchemaConstraints(t *testing.T) {
	store := newTestStore(t, storage.ProfileFull)
	f := seedCouple(t, store, "schema@example.com")
	ctx := context.Background()
	now := time.Now().Unix()

	t.Run("category names are unique ignoring case", func(t *testing.T) {
		dup := &models.Category{ID: uuid.New().String(), CoupleID: f.couple.ID, Name: "GROCERIES", Color: "#000000", CreatedAt: now, UpdatedAt: now}
		if err := store.CreateCategory(ctx, dup); err == nil {
			t.Fatal("Expected unique index violation")
		}

		if err := store.SoftDeleteCategory(ctx, f.couple.ID, f.groceries.ID, now); err != nil {
			t.Fatalf("SoftDeleteCategory failed: %v", err)
		}
		if err := store.CreateCategory(ctx, dup); err != nil {
			t.Errorf("Expected name to be free after soft delete, got %v", err)
		}
	})

	t.Run("registered participant requires user", func(t *testing.T) {
		p := &models.Participant{
			ID:              uuid.New().String(),
			CoupleID:        f.couple.ID,
			DisplayName:     "Ghost",
			IsRegistered:    true,
			DefaultCurrency: "EUR",
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := store.CreateParticipant(ctx, p); err == nil {
			t.Error("Expected check constraint violation")
		}
	})

	t.Run("one participant per user", func(t *testing.T) {
		link := func() error {
			return store.CreateParticipant(ctx, &models.Participant{
				ID:              uuid.New().String(),
				CoupleID:        f.couple.ID,
				UserID:          &f.user.ID,
				DisplayName:     "Alice",
				IsRegistered:    true,
				DefaultCurrency: "EUR",
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}
		if err := link(); err != nil {
			t.Fatalf("First link failed: %v", err)
		}
		if err := link(); err == nil {
			t.Error("Expected unique index violation for second link")
		}
	})

	t.Run("split participant unique per expense", func(t *testing.T) {
		e := f.expense(1000, "Dup", "2024-03-01")
		err := store.InTx(ctx, func(q storage.Queries) error {
			if err := q.CreateExpense(ctx, e); err != nil {
				return err
			}
			return q.InsertSplits(ctx, e.ID, []models.ExpenseSplit{
				{ParticipantID: f.alice.ID, ShareCents: 500},
				{ParticipantID: f.alice.ID, ShareCents: 500},
			})
		})
		if err == nil {
			t.Error("Expected unique constraint violation")
		}
	})
}

func TestGroupMembers(t *testing.T) {
	store := newTestStore(t, storage.ProfileFull)
	f := seedCouple(t, store, "groups@example.com")
	ctx := context.Background()
	now := time.Now().Unix()

	g := &models.ExpenseGroup{
		ID:                 uuid.New().String(),
		CoupleID:           f.couple.ID,
		Name:               "Trip",
		OwnerParticipantID: f.alice.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := store.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	for _, m := range []models.GroupMember{
		{GroupID: g.ID, ParticipantID: f.alice.ID, Role: models.RoleOwner, Status: models.MemberActive, JoinedAt: now, UpdatedAt: now},
		{GroupID: g.ID, ParticipantID: f.bob.ID, Role: models.RoleMember, Status: models.MemberActive, JoinedAt: now, UpdatedAt: now},
	} {
		if err := store.UpsertGroupMember(ctx, &m); err != nil {
			t.Fatalf("UpsertGroupMember failed: %v", err)
		}
	}

	n, err := store.LeaveAllGroups(ctx, f.bob.ID, now+1)
	if err != nil {
		t.Fatalf("LeaveAllGroups failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 membership left, got %d", n)
	}

	// Reactivation keeps the original join time.
	rejoin := models.GroupMember{GroupID: g.ID, ParticipantID: f.bob.ID, Role: models.RoleMember, Status: models.MemberActive, JoinedAt: now + 2, UpdatedAt: now + 2}
	if err := store.UpsertGroupMember(ctx, &rejoin); err != nil {
		t.Fatalf("UpsertGroupMember failed: %v", err)
	}

	members, err := store.ListGroupMembers(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListGroupMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(members))
	}
	if members[0].ParticipantID != f.alice.ID || members[0].Role != models.RoleOwner {
		t.Errorf("Expected owner first, got %+v", members[0])
	}
	if members[1].Status != models.MemberActive || members[1].JoinedAt != now {
		t.Errorf("Unexpected reactivated member: %+v", members[1])
	}
}

func TestMigrationVersion(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "migrate.db")

	if err := RunMigrations(dbPath); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	// Running again is a no-op.
	if err := RunMigrations(dbPath); err != nil {
		t.Fatalf("Second RunMigrations failed: %v", err)
	}

	version, dirty, err := MigrationVersion(dbPath)
	if err != nil {
		t.Fatalf("MigrationVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("Expected clean version 1, got %d (dirty=%v)", version, dirty)
	}
}
