package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestOpen_RunsMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	var count int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if count == 0 {
		t.Error("expected at least one recorded migration")
	}
	store.Close()

	// Reopening the same file must not reapply anything.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer store.Close()

	var again int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&again); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if again != count {
		t.Errorf("expected %d migrations after reopen, got %d", count, again)
	}
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedDefaults(ctx); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	if err := store.SeedDefaults(ctx); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	statuses, err := store.ListStatuses(ctx)
	if err != nil {
		t.Fatalf("failed to list statuses: %v", err)
	}
	if len(statuses) != 4 {
		t.Errorf("expected 4 seeded statuses, got %d", len(statuses))
	}
}

func TestFindCustomer_MatchesNameAndPhone(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedDefaults(ctx); err != nil {
		t.Fatalf("failed to seed defaults: %v", err)
	}

	ct, err := store.GetCustomerTypeByName(ctx, "Student")
	if err != nil {
		t.Fatalf("failed to look up customer type: %v", err)
	}

	withPhone := &Customer{Name: "Alice de Vries", Phone: "0612345678", CustomerTypeID: ct.ID}
	if err := store.CreateCustomer(ctx, withPhone); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}
	noPhone := &Customer{Name: "Bob Janssen", CustomerTypeID: ct.ID}
	if err := store.CreateCustomer(ctx, noPhone); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}

	found, err := store.FindCustomer(ctx, "Alice de Vries", "0612345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != withPhone.ID {
		t.Errorf("expected customer %d, got %d", withPhone.ID, found.ID)
	}

	// Same name, different phone is a different person.
	if _, err := store.FindCustomer(ctx, "Alice de Vries", "0687654321"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}

	found, err = store.FindCustomer(ctx, "Bob Janssen", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != noPhone.ID {
		t.Errorf("expected customer %d, got %d", noPhone.ID, found.ID)
	}
}

func TestActiveWindow(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	if _, err := store.ActiveWindow(ctx, now); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows with no windows, got %v", err)
	}

	past := &IntakeWindow{StartsAt: now.Add(-4 * time.Hour), EndsAt: now.Add(-2 * time.Hour)}
	if err := store.CreateWindow(ctx, past); err != nil {
		t.Fatalf("failed to create window: %v", err)
	}
	if _, err := store.ActiveWindow(ctx, now); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows outside any window, got %v", err)
	}

	current := &IntakeWindow{StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	if err := store.CreateWindow(ctx, current); err != nil {
		t.Fatalf("failed to create window: %v", err)
	}

	active, err := store.ActiveWindow(ctx, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active.ID != current.ID {
		t.Errorf("expected window %d, got %d", current.ID, active.ID)
	}
}

func TestCountItemsByWindow(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedDefaults(ctx); err != nil {
		t.Fatalf("failed to seed defaults: %v", err)
	}

	counts, err := store.CountItemsByWindow(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected no rows without windows, got %d", len(counts))
	}

	now := time.Now()
	busy := &IntakeWindow{StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	if err := store.CreateWindow(ctx, busy); err != nil {
		t.Fatalf("failed to create window: %v", err)
	}
	empty := &IntakeWindow{StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(26 * time.Hour)}
	if err := store.CreateWindow(ctx, empty); err != nil {
		t.Fatalf("failed to create window: %v", err)
	}

	ct, err := store.GetCustomerTypeByName(ctx, "Student")
	if err != nil {
		t.Fatalf("failed to look up customer type: %v", err)
	}
	customer := &Customer{Name: "Alice de Vries", CustomerTypeID: ct.ID}
	if err := store.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}
	dept, err := store.FirstDepartment(ctx)
	if err != nil {
		t.Fatalf("failed to get department: %v", err)
	}
	var statusID int64
	if err := store.DB().QueryRow("SELECT id FROM statuses WHERE name = 'Registered'").Scan(&statusID); err != nil {
		t.Fatalf("failed to look up status: %v", err)
	}

	for _, code := range []string{"AB12", "CD34"} {
		item := &Item{
			Code:               code,
			CustomerID:         customer.ID,
			DepartmentID:       dept.ID,
			StatusID:           statusID,
			IntakeWindowID:     busy.ID,
			ItemDescription:    "desk lamp",
			ProblemDescription: "flickers",
			RegisteredAt:       now,
		}
		if err := store.CreateItem(ctx, item); err != nil {
			t.Fatalf("failed to create item %s: %v", code, err)
		}
	}

	counts, err = store.CountItemsByWindow(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 window rows, got %d", len(counts))
	}
	byID := make(map[int64]int64, len(counts))
	for _, wc := range counts {
		byID[wc.WindowID] = wc.Items
	}
	if byID[busy.ID] != 2 {
		t.Errorf("expected 2 items in busy window, got %d", byID[busy.ID])
	}
	if byID[empty.ID] != 0 {
		t.Errorf("expected 0 items in empty window, got %d", byID[empty.ID])
	}
}

func TestCountPrintJobsByStatus_EmptyDatabase(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	counts, err := store.CountPrintJobsByStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("expected empty map, got %v", counts)
	}
}

func TestAddUsage_PruneLeavesNoNonPositiveRow(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedDefaults(ctx); err != nil {
		t.Fatalf("failed to seed defaults: %v", err)
	}

	now := time.Now()
	window := &IntakeWindow{StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	if err := store.CreateWindow(ctx, window); err != nil {
		t.Fatalf("failed to create window: %v", err)
	}
	ct, err := store.GetCustomerTypeByName(ctx, "Student")
	if err != nil {
		t.Fatalf("failed to look up customer type: %v", err)
	}
	customer := &Customer{Name: "Alice de Vries", CustomerTypeID: ct.ID}
	if err := store.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}
	dept, err := store.FirstDepartment(ctx)
	if err != nil {
		t.Fatalf("failed to get department: %v", err)
	}
	var statusID int64
	if err := store.DB().QueryRow("SELECT id FROM statuses WHERE name = 'Registered'").Scan(&statusID); err != nil {
		t.Fatalf("failed to look up status: %v", err)
	}
	item := &Item{
		Code:               "AB12",
		CustomerID:         customer.ID,
		DepartmentID:       dept.ID,
		StatusID:           statusID,
		IntakeWindowID:     window.ID,
		ItemDescription:    "desk lamp",
		ProblemDescription: "flickers",
		RegisteredAt:       now,
	}
	if err := store.CreateItem(ctx, item); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	fuse := &Material{Name: "fuse 5A", UnitPriceCents: 150}
	if err := store.CreateMaterial(ctx, fuse); err != nil {
		t.Fatalf("failed to create material: %v", err)
	}

	rowCount := func() int {
		t.Helper()
		var n int
		if err := store.DB().QueryRow(
			"SELECT COUNT(*) FROM material_usage WHERE item_id = ? AND material_id = ?",
			item.ID, fuse.ID).Scan(&n); err != nil {
			t.Fatalf("failed to count usage rows: %v", err)
		}
		return n
	}

	if err := store.AddUsage(ctx, item.ID, fuse.ID, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rowCount() != 1 {
		t.Fatalf("expected 1 usage row, got %d", rowCount())
	}

	// Crossing zero removes the row within the same transaction.
	if err := store.AddUsage(ctx, item.ID, fuse.ID, -5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rowCount() != 0 {
		t.Errorf("expected usage row pruned, got %d rows", rowCount())
	}

	// A delta that never goes positive leaves nothing behind either.
	if err := store.AddUsage(ctx, item.ID, fuse.ID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rowCount() != 0 {
		t.Errorf("expected no usage row for zero delta, got %d rows", rowCount())
	}
}
