package core

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opencafe/intake/internal/db"
	"github.com/opencafe/intake/internal/observability"
)

type testEnv struct {
	store      *db.Store
	relay      *Relay
	dispatcher *Dispatcher
	service    *Service
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()

	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("failed to seed defaults: %v", err)
	}
	return store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newTestStore(t)
	log := discardLogger()
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	statuses, err := NewStatusRegistry(context.Background(), store)
	if err != nil {
		t.Fatalf("failed to build status registry: %v", err)
	}

	relay := NewRelay(store, metrics, log, 4)
	dispatcher := NewDispatcher(store, metrics, log, 4)
	service := NewService(store, statuses, relay, dispatcher, metrics, log)

	return &testEnv{store: store, relay: relay, dispatcher: dispatcher, service: service}
}

// openWindow makes registrations possible by creating an intake window
// spanning the current moment.
func openWindow(t *testing.T, store *db.Store) {
	t.Helper()

	now := time.Now()
	w := &db.IntakeWindow{StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	if err := store.CreateWindow(context.Background(), w); err != nil {
		t.Fatalf("failed to create intake window: %v", err)
	}
}

func registerItem(t *testing.T, env *testEnv) *db.ItemDetail {
	t.Helper()

	item, err := env.service.Register(context.Background(), RegisterInput{
		CustomerName:       "Alice de Vries",
		CustomerPhone:      "0612345678",
		CustomerType:       "Student",
		ProblemDescription: "does not turn on",
		ItemDescription:    "desk lamp",
	})
	if err != nil {
		t.Fatalf("failed to register item: %v", err)
	}
	return item
}

// seedBareItem inserts an item row directly, bypassing the registration
// flow so dispatcher tests do not trigger intake tickets of their own.
func seedBareItem(t *testing.T, store *db.Store, code string) *db.Item {
	t.Helper()
	ctx := context.Background()

	now := time.Now()
	w := &db.IntakeWindow{StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	if err := store.CreateWindow(ctx, w); err != nil {
		t.Fatalf("failed to create intake window: %v", err)
	}

	ct, err := store.GetCustomerTypeByName(ctx, "Student")
	if err != nil {
		t.Fatalf("failed to look up customer type: %v", err)
	}
	cust := &db.Customer{Name: "Bob Janssen", CustomerTypeID: ct.ID}
	if err := store.CreateCustomer(ctx, cust); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}

	dept, err := store.FirstDepartment(ctx)
	if err != nil {
		t.Fatalf("failed to look up department: %v", err)
	}

	statuses, err := NewStatusRegistry(ctx, store)
	if err != nil {
		t.Fatalf("failed to build status registry: %v", err)
	}
	registeredID, err := statuses.ID(StatusRegistered)
	if err != nil {
		t.Fatalf("failed to resolve status: %v", err)
	}

	item := &db.Item{
		Code:               code,
		CustomerID:         cust.ID,
		DepartmentID:       dept.ID,
		StatusID:           registeredID,
		IntakeWindowID:     w.ID,
		ItemDescription:    "desk lamp",
		ProblemDescription: "does not turn on",
		RegisteredAt:       now,
	}
	if err := store.CreateItem(ctx, item); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	return item
}

func addMaterial(t *testing.T, store *db.Store, name string, priceCents int64) *db.Material {
	t.Helper()

	m := &db.Material{Name: name, UnitPriceCents: priceCents}
	if err := store.CreateMaterial(context.Background(), m); err != nil {
		t.Fatalf("failed to create material: %v", err)
	}
	return m
}
