package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegister_RequiresActiveWindow(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Register(context.Background(), RegisterInput{
		CustomerName:       "Alice de Vries",
		CustomerType:       "Student",
		ProblemDescription: "does not turn on",
		ItemDescription:    "desk lamp",
	})
	if !errors.Is(err, ErrNoActiveWindow) {
		t.Fatalf("expected ErrNoActiveWindow, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)

	valid := RegisterInput{
		CustomerName:       "Alice de Vries",
		CustomerType:       "Student",
		ProblemDescription: "does not turn on",
		ItemDescription:    "desk lamp",
	}

	tests := []struct {
		name   string
		mutate func(in *RegisterInput)
		field  string
	}{
		{"missing customer name", func(in *RegisterInput) { in.CustomerName = " " }, "customer_name"},
		{"missing customer type", func(in *RegisterInput) { in.CustomerType = "" }, "customer_type"},
		{"missing problem", func(in *RegisterInput) { in.ProblemDescription = "" }, "problem_description"},
		{"missing item description", func(in *RegisterInput) { in.ItemDescription = "" }, "item_description"},
		{"unknown customer type", func(in *RegisterInput) { in.CustomerType = "Alien" }, "customer_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			_, err := env.service.Register(context.Background(), in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestRegister_CreatesRegisteredItem(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)

	item := registerItem(t, env)

	if item.Status != StatusRegistered {
		t.Errorf("expected status %q, got %q", StatusRegistered, item.Status)
	}
	if len(item.Code) != codeLength {
		t.Errorf("expected %d-character code, got %q", codeLength, item.Code)
	}
	for _, ch := range item.Code {
		if !strings.ContainsRune(codeAlphabet, ch) {
			t.Errorf("code %q contains %q outside the alphabet", item.Code, ch)
		}
	}
	if item.RegisteredAt.IsZero() {
		t.Error("expected registered_at to be set")
	}
	if item.StartedAt != nil || item.ReadyAt != nil || item.DeliveredAt != nil {
		t.Error("expected later timestamps to be unset at registration")
	}
	if item.Department == "" {
		t.Error("expected default department to be assigned")
	}
}

func TestRegister_ReusesExistingCustomer(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)

	first := registerItem(t, env)
	second := registerItem(t, env)

	if first.CustomerID != second.CustomerID {
		t.Errorf("expected same customer, got %d and %d", first.CustomerID, second.CustomerID)
	}
	if first.Code == second.Code {
		t.Errorf("expected distinct tracking codes, both %q", first.Code)
	}
}

func TestRegister_UniqueCodesUnderLoad(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		item := registerItem(t, env)
		if seen[item.Code] {
			t.Fatalf("tracking code %q issued twice", item.Code)
		}
		seen[item.Code] = true
	}
}

func TestAdvanceToInProgress(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)

	opened, err := env.service.AdvanceToInProgress(context.Background(), item.Code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opened.Status != StatusInProgress {
		t.Errorf("expected status %q, got %q", StatusInProgress, opened.Status)
	}
	if opened.StartedAt == nil {
		t.Fatal("expected started_at to be set")
	}

	// A second open is a no-op.
	again, err := env.service.AdvanceToInProgress(context.Background(), item.Code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Status != StatusInProgress {
		t.Errorf("expected status to stay %q, got %q", StatusInProgress, again.Status)
	}
	if !again.StartedAt.Equal(*opened.StartedAt) {
		t.Error("expected started_at to be unchanged on repeat open")
	}
}

func TestAdvanceToInProgress_UnknownItem(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.AdvanceToInProgress(context.Background(), "ZZZZ")
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestCompleteWithAdvice(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)

	done, err := env.service.CompleteWithAdvice(context.Background(), item.Code, "replaced the fuse", "Repaired")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusReady {
		t.Errorf("expected status %q, got %q", StatusReady, done.Status)
	}
	if done.Advice != "replaced the fuse" {
		t.Errorf("expected advice to be stored, got %q", done.Advice)
	}
	if done.RepairOutcome != "Repaired" {
		t.Errorf("expected outcome %q, got %q", "Repaired", done.RepairOutcome)
	}
	if done.ReadyAt == nil {
		t.Error("expected ready_at to be set")
	}

	// Completing again replaces the outcome instead of duplicating it.
	redone, err := env.service.CompleteWithAdvice(context.Background(), item.Code, "fuse and cable", "Partially repaired")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if redone.RepairOutcome != "Partially repaired" {
		t.Errorf("expected replaced outcome, got %q", redone.RepairOutcome)
	}
	if redone.Advice != "fuse and cable" {
		t.Errorf("expected replaced advice, got %q", redone.Advice)
	}
}

func TestCompleteWithAdvice_RequiresAdviceAndOutcome(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)

	var verr *ValidationError
	if _, err := env.service.CompleteWithAdvice(context.Background(), item.Code, "  ", "Repaired"); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for blank advice, got %v", err)
	}
	if _, err := env.service.CompleteWithAdvice(context.Background(), item.Code, "advice", ""); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for blank outcome, got %v", err)
	}
}

func TestDeliver_RequiresReady(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)

	_, err := env.service.Deliver(context.Background(), item.Code)
	var perr *PreconditionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if !strings.Contains(perr.Reason, StatusRegistered) {
		t.Errorf("expected current status in error, got %q", perr.Reason)
	}

	// Delivered items cannot be delivered twice either.
	if _, err := env.service.CompleteWithAdvice(context.Background(), item.Code, "fixed", "Repaired"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.service.Deliver(context.Background(), item.Code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = env.service.Deliver(context.Background(), item.Code)
	if !errors.As(err, &perr) {
		t.Fatalf("expected PreconditionError on repeat delivery, got %v", err)
	}
	if !strings.Contains(perr.Reason, StatusDelivered) {
		t.Errorf("expected current status in error, got %q", perr.Reason)
	}
}

func TestDeliver_MarksDeliveredWithSubtotal(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)
	fuse := addMaterial(t, env.store, "fuse 5A", 150)

	if _, err := env.service.AddMaterialUsage(context.Background(), item.Code, fuse.ID, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.service.CompleteWithAdvice(context.Background(), item.Code, "replaced fuse", "Repaired"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	delivered, err := env.service.Deliver(context.Background(), item.Code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivered.Status != StatusDelivered {
		t.Errorf("expected status %q, got %q", StatusDelivered, delivered.Status)
	}
	if delivered.DeliveredAt == nil {
		t.Error("expected delivered_at to be set")
	}
	if got := MaterialsSubtotal(delivered.Materials); got != 300 {
		t.Errorf("expected subtotal 300 cents, got %d", got)
	}
}

func TestMaterialUsage_AccumulateAndRemove(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)
	solder := addMaterial(t, env.store, "solder", 25)

	ctx := context.Background()

	after, err := env.service.AddMaterialUsage(ctx, item.Code, solder.ID, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(after.Materials) != 1 || after.Materials[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %+v", after.Materials)
	}

	// Adding the same material again accumulates.
	after, err = env.service.AddMaterialUsage(ctx, item.Code, solder.ID, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.Materials[0].Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", after.Materials[0].Quantity)
	}
	if after.Materials[0].TotalCents != 125 {
		t.Errorf("expected line total 125 cents, got %d", after.Materials[0].TotalCents)
	}

	// Set overwrites instead of accumulating.
	after, err = env.service.SetMaterialUsage(ctx, item.Code, solder.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.Materials[0].Quantity != 1 {
		t.Errorf("expected quantity 1, got %d", after.Materials[0].Quantity)
	}

	// Dropping to zero removes the row entirely.
	after, err = env.service.SetMaterialUsage(ctx, item.Code, solder.ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(after.Materials) != 0 {
		t.Errorf("expected no usage rows, got %+v", after.Materials)
	}

	// A negative delta that sinks the total below zero also removes it.
	if _, err = env.service.AddMaterialUsage(ctx, item.Code, solder.ID, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, err = env.service.AddMaterialUsage(ctx, item.Code, solder.ID, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(after.Materials) != 0 {
		t.Errorf("expected usage removed at non-positive total, got %+v", after.Materials)
	}
}

func TestMaterialUsage_UnknownMaterial(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)

	_, err := env.service.AddMaterialUsage(context.Background(), item.Code, 999, 1)
	if !errors.Is(err, ErrMaterialNotFound) {
		t.Fatalf("expected ErrMaterialNotFound, got %v", err)
	}
}

func TestUpdate_EditsEnumeratedFields(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)

	ctx := context.Background()
	deptID, err := env.store.CreateDepartment(ctx, "Textiles")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	desc := "floor lamp"
	updated, err := env.service.Update(ctx, item.Code, UpdateItemInput{
		ItemDescription: &desc,
		DepartmentID:    &deptID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ItemDescription != "floor lamp" {
		t.Errorf("expected updated description, got %q", updated.ItemDescription)
	}
	if updated.Department != "Textiles" {
		t.Errorf("expected department Textiles, got %q", updated.Department)
	}
	if updated.ProblemDescription != item.ProblemDescription {
		t.Error("expected untouched fields to survive the update")
	}
}

func TestUpdate_Rejections(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)

	ctx := context.Background()
	blank := "  "
	if _, err := env.service.Update(ctx, item.Code, UpdateItemInput{ItemDescription: &blank}); err == nil {
		t.Error("expected error for blank item description")
	}

	badDept := int64(999)
	if _, err := env.service.Update(ctx, item.Code, UpdateItemInput{DepartmentID: &badDept}); !errors.Is(err, ErrDepartmentNotFound) {
		t.Errorf("expected ErrDepartmentNotFound, got %v", err)
	}

	badStatus := int64(999)
	if _, err := env.service.Update(ctx, item.Code, UpdateItemInput{StatusID: &badStatus}); !errors.Is(err, ErrStatusNotConfigured) {
		t.Errorf("expected ErrStatusNotConfigured, got %v", err)
	}
}

func TestUpdate_AllowsBackwardStatusMove(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)

	ctx := context.Background()
	if _, err := env.service.CompleteWithAdvice(ctx, item.Code, "fixed", "Repaired"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	registeredID := item.StatusID
	moved, err := env.service.Update(ctx, item.Code, UpdateItemInput{StatusID: &registeredID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.Status != StatusRegistered {
		t.Errorf("expected admin edit back to %q, got %q", StatusRegistered, moved.Status)
	}
}

func TestDelete_CascadesAndForgets(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	item := registerItem(t, env)
	solder := addMaterial(t, env.store, "solder", 25)

	ctx := context.Background()
	if _, err := env.service.AddMaterialUsage(ctx, item.Code, solder.ID, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.service.CompleteWithAdvice(ctx, item.Code, "fixed", "Repaired"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := env.service.Delete(ctx, item.Code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.service.Get(ctx, item.Code); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound after delete, got %v", err)
	}
}

// TestWorkflowEndToEnd walks one item through the whole counter flow.
func TestWorkflowEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	openWindow(t, env.store)
	ctx := context.Background()

	item := registerItem(t, env)
	if item.Status != StatusRegistered {
		t.Fatalf("expected %q, got %q", StatusRegistered, item.Status)
	}

	if _, err := env.service.AdvanceToInProgress(ctx, item.Code); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	fuse := addMaterial(t, env.store, "fuse 5A", 150)
	cable := addMaterial(t, env.store, "power cable", 400)
	if _, err := env.service.AddMaterialUsage(ctx, item.Code, fuse.ID, 1); err != nil {
		t.Fatalf("material add failed: %v", err)
	}
	if _, err := env.service.AddMaterialUsage(ctx, item.Code, cable.ID, 1); err != nil {
		t.Fatalf("material add failed: %v", err)
	}

	if _, err := env.service.CompleteWithAdvice(ctx, item.Code, "replaced fuse and cable", "Repaired"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	ready, err := env.service.GetForDelivery(ctx, item.Code)
	if err != nil {
		t.Fatalf("delivery lookup failed: %v", err)
	}
	if got := MaterialsSubtotal(ready.Materials); got != 550 {
		t.Errorf("expected subtotal 550 cents, got %d", got)
	}

	delivered, err := env.service.Deliver(ctx, item.Code)
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if delivered.Status != StatusDelivered {
		t.Errorf("expected %q, got %q", StatusDelivered, delivered.Status)
	}

	snap, err := env.relay.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(snap.Delivered) != 1 || snap.Delivered[0].Code != item.Code {
		t.Errorf("expected item in Delivered bucket, got %+v", snap)
	}
}
