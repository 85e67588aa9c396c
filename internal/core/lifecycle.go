package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opencafe/intake/internal/db"
	"github.com/opencafe/intake/internal/observability"
)

// Service applies lifecycle transitions to repair items. Every successful
// status change publishes a fresh snapshot through the relay; print dispatch
// and broadcasting are best-effort and never fail the primary operation.
type Service struct {
	store    *db.Store
	statuses *StatusRegistry
	relay    *Relay
	printers *Dispatcher
	metrics  *observability.Metrics
	log      *slog.Logger
}

func NewService(store *db.Store, statuses *StatusRegistry, relay *Relay, printers *Dispatcher, metrics *observability.Metrics, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		statuses: statuses,
		relay:    relay,
		printers: printers,
		metrics:  metrics,
		log:      log,
	}
}

type RegisterInput struct {
	CustomerName       string
	CustomerPhone      string
	CustomerType       string
	ProblemDescription string
	ItemDescription    string
	DepartmentID       int64
}

// Register validates the intake form, requires an active intake window,
// finds or creates the customer, assigns a unique tracking code and creates
// the item in Registered state. An intake ticket is queued for printing and
// the live snapshot is republished; neither can fail the registration.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*db.ItemDetail, error) {
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, validationErr("customer_name", "customer name is required")
	}
	if strings.TrimSpace(in.CustomerType) == "" {
		return nil, validationErr("customer_type", "customer type is required")
	}
	if strings.TrimSpace(in.ProblemDescription) == "" {
		return nil, validationErr("problem_description", "problem description is required")
	}
	if strings.TrimSpace(in.ItemDescription) == "" {
		return nil, validationErr("item_description", "item description is required")
	}

	now := time.Now()
	window, err := s.store.ActiveWindow(ctx, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveWindow
		}
		return nil, err
	}

	customerType, err := s.store.GetCustomerTypeByName(ctx, in.CustomerType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, validationErr("customer_type", fmt.Sprintf("unknown customer type %q", in.CustomerType))
		}
		return nil, err
	}

	departmentID := in.DepartmentID
	if departmentID == 0 {
		dept, err := s.store.FirstDepartment(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrDepartmentNotFound
			}
			return nil, err
		}
		departmentID = dept.ID
	} else if _, err := s.store.GetDepartment(ctx, departmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDepartmentNotFound
		}
		return nil, err
	}

	customer, err := s.store.FindCustomer(ctx, in.CustomerName, in.CustomerPhone)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		customer = &db.Customer{
			Name:           in.CustomerName,
			Phone:          in.CustomerPhone,
			CustomerTypeID: customerType.ID,
		}
		if err := s.store.CreateCustomer(ctx, customer); err != nil {
			return nil, err
		}
	}

	registeredID, err := s.statuses.ID(StatusRegistered)
	if err != nil {
		return nil, err
	}

	item := &db.Item{
		CustomerID:         customer.ID,
		DepartmentID:       departmentID,
		StatusID:           registeredID,
		IntakeWindowID:     window.ID,
		ItemDescription:    in.ItemDescription,
		ProblemDescription: in.ProblemDescription,
		RegisteredAt:       now,
	}

	// The pre-check in generateCode is advisory; a concurrent insert can
	// still take the code, in which case the UNIQUE constraint fires and we
	// draw again.
	const insertAttempts = 3
	for attempt := 0; ; attempt++ {
		code, err := generateCode(ctx, s.store.ItemCodeExists)
		if err != nil {
			return nil, err
		}
		item.Code = code

		err = s.store.CreateItem(ctx, item)
		if err == nil {
			break
		}
		if isUniqueCodeViolation(err) && attempt < insertAttempts-1 {
			continue
		}
		return nil, err
	}

	detail, err := s.store.GetItemByCode(ctx, item.Code)
	if err != nil {
		return nil, err
	}

	s.metrics.Registrations.Inc()
	s.dispatchTicket(ctx, detail, PrintKindIntake)
	s.relay.Publish(ctx)

	return detail, nil
}

// AdvanceToInProgress moves a freshly opened item into In Progress. It is a
// no-op when the item already progressed past Registered.
func (s *Service) AdvanceToInProgress(ctx context.Context, code string) (*db.ItemDetail, error) {
	item, err := s.getItem(ctx, code)
	if err != nil {
		return nil, err
	}

	switch item.Status {
	case StatusInProgress, StatusReady, StatusDelivered:
		return item, nil
	}

	inProgressID, err := s.statuses.ID(StatusInProgress)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.store.MarkItemInProgress(ctx, item.ID, inProgressID, now); err != nil {
		return nil, err
	}
	item.StatusID = inProgressID
	item.Status = StatusInProgress
	item.StartedAt = &now

	s.relay.Publish(ctx)
	return item, nil
}

// CompleteWithAdvice finishes the repair work on an item: it stores the
// advice, marks the item Ready and upserts the repair outcome, all in one
// transaction. Calling it again replaces the outcome instead of duplicating.
func (s *Service) CompleteWithAdvice(ctx context.Context, code, advice, outcome string) (*db.ItemDetail, error) {
	advice = strings.TrimSpace(advice)
	if advice == "" {
		return nil, validationErr("advice", "advice is required")
	}
	if strings.TrimSpace(outcome) == "" {
		return nil, validationErr("outcome", "repair outcome is required")
	}

	item, err := s.getItem(ctx, code)
	if err != nil {
		return nil, err
	}

	readyID, err := s.statuses.ID(StatusReady)
	if err != nil {
		return nil, err
	}

	if err := s.store.CompleteItem(ctx, item.ID, readyID, advice, outcome, time.Now()); err != nil {
		return nil, err
	}

	s.relay.Publish(ctx)
	return s.getItem(ctx, code)
}

// GetForDelivery looks the item up at the counter and verifies it is Ready.
// The current status is included in the error so the operator can tell the
// customer what is holding the item up.
func (s *Service) GetForDelivery(ctx context.Context, code string) (*db.ItemDetail, error) {
	item, err := s.getItem(ctx, code)
	if err != nil {
		return nil, err
	}

	if item.Status != StatusReady {
		return nil, &PreconditionError{Reason: fmt.Sprintf("item not ready for delivery, status: %s", item.Status)}
	}
	return item, nil
}

// Deliver hands a Ready item back to its customer: status moves to Delivered,
// the material subtotal is computed and a delivery receipt is queued for
// printing. Items in any other status are rejected with their current status.
func (s *Service) Deliver(ctx context.Context, code string) (*db.ItemDetail, error) {
	item, err := s.GetForDelivery(ctx, code)
	if err != nil {
		return nil, err
	}

	deliveredID, err := s.statuses.ID(StatusDelivered)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.store.MarkItemDelivered(ctx, item.ID, deliveredID, now); err != nil {
		return nil, err
	}
	item.StatusID = deliveredID
	item.Status = StatusDelivered
	item.DeliveredAt = &now

	s.metrics.Deliveries.Inc()
	s.dispatchTicket(ctx, item, PrintKindDelivery)
	s.relay.Publish(ctx)

	return item, nil
}

// MaterialsSubtotal sums quantity times unit price over an item's usage rows.
func MaterialsSubtotal(usage []db.UsageDetail) int64 {
	var subtotal int64
	for _, u := range usage {
		subtotal += u.TotalCents
	}
	return subtotal
}

// AddMaterialUsage accumulates delta onto the recorded quantity for the
// material, creating the row when missing and removing it when the total
// drops to zero or below.
func (s *Service) AddMaterialUsage(ctx context.Context, code string, materialID, delta int64) (*db.ItemDetail, error) {
	item, err := s.getItem(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.requireMaterial(ctx, materialID); err != nil {
		return nil, err
	}

	if err := s.store.AddUsage(ctx, item.ID, materialID, delta); err != nil {
		return nil, err
	}
	return s.getItem(ctx, code)
}

// SetMaterialUsage overwrites the recorded quantity; zero or below removes
// the usage row entirely.
func (s *Service) SetMaterialUsage(ctx context.Context, code string, materialID, quantity int64) (*db.ItemDetail, error) {
	item, err := s.getItem(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.requireMaterial(ctx, materialID); err != nil {
		return nil, err
	}

	if err := s.store.SetUsage(ctx, item.ID, materialID, quantity); err != nil {
		return nil, err
	}
	return s.getItem(ctx, code)
}

func (s *Service) RemoveMaterialUsage(ctx context.Context, code string, materialID int64) (*db.ItemDetail, error) {
	return s.SetMaterialUsage(ctx, code, materialID, 0)
}

// UpdateItemInput enumerates the editable item fields; nothing else is
// writable through the update path.
type UpdateItemInput struct {
	ItemDescription    *string
	ProblemDescription *string
	DepartmentID       *int64
	StatusID           *int64
}

// Update applies an admin edit. Status changes are permissive here (any
// configured status, in any direction); only Deliver enforces ordering.
func (s *Service) Update(ctx context.Context, code string, in UpdateItemInput) (*db.ItemDetail, error) {
	item, err := s.getItem(ctx, code)
	if err != nil {
		return nil, err
	}

	if in.ItemDescription != nil && strings.TrimSpace(*in.ItemDescription) == "" {
		return nil, validationErr("item_description", "item description cannot be empty")
	}
	if in.ProblemDescription != nil && strings.TrimSpace(*in.ProblemDescription) == "" {
		return nil, validationErr("problem_description", "problem description cannot be empty")
	}
	if in.DepartmentID != nil {
		if _, err := s.store.GetDepartment(ctx, *in.DepartmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrDepartmentNotFound
			}
			return nil, err
		}
	}
	if in.StatusID != nil && !s.statuses.Known(*in.StatusID) {
		return nil, fmt.Errorf("%w: id %d", ErrStatusNotConfigured, *in.StatusID)
	}

	err = s.store.UpdateItem(ctx, item.ID, db.UpdateItemParams{
		ItemDescription:    in.ItemDescription,
		ProblemDescription: in.ProblemDescription,
		DepartmentID:       in.DepartmentID,
		StatusID:           in.StatusID,
	})
	if err != nil {
		return nil, err
	}

	s.relay.Publish(ctx)
	return s.getItem(ctx, code)
}

// Delete removes the item and all dependent rows as one transaction.
func (s *Service) Delete(ctx context.Context, code string) error {
	item, err := s.getItem(ctx, code)
	if err != nil {
		return err
	}

	if err := s.store.DeleteItemCascade(ctx, item.ID); err != nil {
		return err
	}

	s.relay.Publish(ctx)
	return nil
}

func (s *Service) Get(ctx context.Context, code string) (*db.ItemDetail, error) {
	return s.getItem(ctx, code)
}

func (s *Service) List(ctx context.Context) ([]*db.ItemDetail, error) {
	return s.store.ListItems(ctx)
}

func (s *Service) getItem(ctx context.Context, code string) (*db.ItemDetail, error) {
	item, err := s.store.GetItemByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *Service) requireMaterial(ctx context.Context, materialID int64) error {
	if _, err := s.store.GetMaterial(ctx, materialID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMaterialNotFound
		}
		return err
	}
	return nil
}

// dispatchTicket queues a print job for the item. Failures are logged only;
// printing never rolls back the operation that triggered it.
func (s *Service) dispatchTicket(ctx context.Context, item *db.ItemDetail, kind string) {
	payload := PrintPayload{
		Kind:               kind,
		Code:               item.Code,
		CustomerName:       item.CustomerName,
		CustomerPhone:      item.CustomerPhone,
		CustomerType:       item.CustomerType,
		Department:         item.Department,
		ItemDescription:    item.ItemDescription,
		ProblemDescription: item.ProblemDescription,
	}

	if kind == PrintKindDelivery {
		payload.Advice = item.Advice
		payload.Materials = item.Materials
		payload.SubtotalCents = MaterialsSubtotal(item.Materials)
	}

	job, err := s.printers.Send(ctx, item.ID, payload)
	switch {
	case errors.Is(err, ErrNoPrinterAvailable):
		if job != nil {
			s.log.Warn("no printer connected, ticket left pending", "code", item.Code, "job_id", job.ID)
		} else {
			s.log.Warn("no printers registered, ticket dropped", "code", item.Code)
		}
	case err != nil:
		s.log.Error("failed to queue print job", "code", item.Code, "error", err)
	}
}

func isUniqueCodeViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: items.code")
}
