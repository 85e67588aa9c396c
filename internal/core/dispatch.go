package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opencafe/intake/internal/db"
	"github.com/opencafe/intake/internal/observability"
)

// Print payload kinds.
const (
	PrintKindIntake   = "intake"
	PrintKindDelivery = "delivery"
)

// PrintPayload is the ticket snapshot handed to a printer client. Delivery
// receipts additionally carry the advice and the billed material lines.
type PrintPayload struct {
	JobID              int64            `json:"job_id,omitempty"`
	Kind               string           `json:"kind"`
	Code               string           `json:"code"`
	CustomerName       string           `json:"customer_name"`
	CustomerPhone      string           `json:"customer_phone,omitempty"`
	CustomerType       string           `json:"customer_type"`
	Department         string           `json:"department"`
	ItemDescription    string           `json:"item_description"`
	ProblemDescription string           `json:"problem_description"`
	Advice             string           `json:"advice,omitempty"`
	Materials          []db.UsageDetail `json:"materials,omitempty"`
	SubtotalCents      int64            `json:"subtotal_cents,omitempty"`
}

// Dispatcher owns the live printer connections and performs best-effort,
// single-attempt delivery of print jobs. Jobs that cannot be pushed stay
// pending and are drained when their printer reconnects.
type Dispatcher struct {
	store   *db.Store
	metrics *observability.Metrics
	log     *slog.Logger
	buffer  int

	mu    sync.Mutex
	conns map[string]chan PrintPayload
}

func NewDispatcher(store *db.Store, metrics *observability.Metrics, log *slog.Logger, buffer int) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		store:   store,
		metrics: metrics,
		log:     log,
		buffer:  buffer,
		conns:   make(map[string]chan PrintPayload),
	}
}

// Connect claims (or creates) the printer identity for name, registers a live
// channel for it, and hands over the printer's pending backlog in creation
// order, marking each delivered job sent.
func (d *Dispatcher) Connect(ctx context.Context, name string) (string, <-chan PrintPayload, error) {
	if name == "" {
		return "", nil, validationErr("name", "printer name is required")
	}

	connID := uuid.New().String()
	printer, err := d.store.UpsertPrinterConnection(ctx, name, connID, time.Now())
	if err != nil {
		return "", nil, fmt.Errorf("failed to register printer: %w", err)
	}

	ch := make(chan PrintPayload, d.buffer)
	d.mu.Lock()
	d.conns[connID] = ch
	d.mu.Unlock()

	d.log.Info("printer connected", "printer", name, "printer_id", printer.ID, "connection_id", connID)

	backlog, err := d.store.ListPendingJobs(ctx, printer.ID)
	if err != nil {
		d.log.Error("failed to load pending print jobs", "printer", name, "error", err)
		return connID, ch, nil
	}

	for _, job := range backlog {
		payload, err := decodePayload(job)
		if err != nil {
			d.log.Error("skipping undecodable print job", "job_id", job.ID, "error", err)
			continue
		}

		select {
		case ch <- payload:
			if err := d.store.MarkPrintJobSent(ctx, job.ID, time.Now()); err != nil {
				d.log.Error("failed to mark print job sent", "job_id", job.ID, "error", err)
			}
		default:
			// Channel full; the rest of the backlog stays pending.
			d.log.Warn("printer channel full, backlog partially delivered", "printer", name)
			return connID, ch, nil
		}
	}

	if len(backlog) > 0 {
		d.log.Info("delivered pending backlog", "printer", name, "jobs", len(backlog))
	}
	return connID, ch, nil
}

// Disconnect flags the printer offline, clears its connection id and closes
// the live channel. Jobs keep whatever status they had.
func (d *Dispatcher) Disconnect(ctx context.Context, connID string) {
	// Disconnect runs after the agent's request context is already canceled;
	// the row update must still land or the printer stays marked connected.
	ctx = context.WithoutCancel(ctx)
	if err := d.store.MarkPrinterDisconnected(ctx, connID); err != nil {
		d.log.Error("failed to mark printer disconnected", "connection_id", connID, "error", err)
	}

	d.mu.Lock()
	ch, ok := d.conns[connID]
	if ok {
		delete(d.conns, connID)
	}
	d.mu.Unlock()

	if ok {
		close(ch)
		d.log.Info("printer disconnected", "connection_id", connID)
	}
}

// Send persists a print job for the item and attempts a single push to the
// first connected printer (by name). With no printer connected the job record
// is still created in pending state against the first known printer, and
// ErrNoPrinterAvailable is returned alongside it; with no printers at all the
// job cannot be recorded.
func (d *Dispatcher) Send(ctx context.Context, itemID int64, payload PrintPayload) (*db.PrintJob, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode print payload: %w", err)
	}

	printer, ch := d.pickPrinter(ctx)
	if printer == nil {
		fallback, err := d.store.ListPrinters(ctx)
		if err != nil {
			return nil, err
		}
		if len(fallback) == 0 {
			d.metrics.PrintJobs.WithLabelValues("unroutable").Inc()
			return nil, ErrNoPrinterAvailable
		}
		printer = fallback[0]
	}

	job := &db.PrintJob{PrinterID: printer.ID, ItemID: itemID, Payload: string(body)}
	if err := d.store.CreatePrintJob(ctx, job); err != nil {
		return nil, err
	}

	if ch == nil {
		d.metrics.PrintJobs.WithLabelValues("pending").Inc()
		return job, ErrNoPrinterAvailable
	}

	payload.JobID = job.ID
	select {
	case ch <- payload:
		if err := d.store.MarkPrintJobSent(ctx, job.ID, time.Now()); err != nil {
			d.log.Error("failed to mark print job sent", "job_id", job.ID, "error", err)
		} else {
			job.Status = db.PrintJobSent
		}
		d.metrics.PrintJobs.WithLabelValues("sent").Inc()
	default:
		// Push failed; job stays pending for redelivery on reconnect.
		d.log.Warn("printer channel full, job left pending", "job_id", job.ID, "printer", printer.Name)
		d.metrics.PrintJobs.WithLabelValues("pending").Inc()
	}

	return job, nil
}

// pickPrinter returns the first connected printer that still has a live
// channel. No load balancing; name order keeps selection deterministic.
func (d *Dispatcher) pickPrinter(ctx context.Context) (*db.Printer, chan PrintPayload) {
	printers, err := d.store.ListConnectedPrinters(ctx)
	if err != nil {
		d.log.Error("failed to list connected printers", "error", err)
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range printers {
		if ch, ok := d.conns[p.ConnectionID]; ok {
			return p, ch
		}
	}
	return nil, nil
}

// Complete records the terminal status reported asynchronously by the printer
// client. It never blocks or correlates back to the original caller.
func (d *Dispatcher) Complete(ctx context.Context, jobID int64, success bool, errMsg string) (*db.PrintJob, error) {
	job, err := d.store.GetPrintJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	status := db.PrintJobCompleted
	if !success {
		status = db.PrintJobFailed
	}

	if err := d.store.FinishPrintJob(ctx, job.ID, status, errMsg, time.Now()); err != nil {
		return nil, err
	}

	job.Status = status
	job.ErrorMessage = errMsg
	d.metrics.PrintJobs.WithLabelValues(status).Inc()
	return job, nil
}

// Retry is the manual redelivery action: a pending or failed job is reset to
// pending and, when its printer is connected, pushed again immediately.
func (d *Dispatcher) Retry(ctx context.Context, jobID int64) (*db.PrintJob, error) {
	job, err := d.store.GetPrintJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	ok, err := d.store.ResetPrintJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &PreconditionError{Reason: fmt.Sprintf("only pending or failed jobs can be retried, status: %s", job.Status)}
	}
	job.Status = db.PrintJobPending
	job.ErrorMessage = ""

	printer, err := d.store.GetPrinterByID(ctx, job.PrinterID)
	if err != nil {
		d.log.Error("failed to load printer for retry", "job_id", job.ID, "error", err)
		return job, nil
	}

	d.mu.Lock()
	ch, live := d.conns[printer.ConnectionID]
	d.mu.Unlock()
	if !live {
		return job, nil
	}

	payload, err := decodePayload(job)
	if err != nil {
		return nil, err
	}

	select {
	case ch <- payload:
		if err := d.store.MarkPrintJobSent(ctx, job.ID, time.Now()); err != nil {
			d.log.Error("failed to mark print job sent", "job_id", job.ID, "error", err)
		} else {
			job.Status = db.PrintJobSent
		}
	default:
		d.log.Warn("printer channel full, retried job left pending", "job_id", job.ID)
	}

	return job, nil
}

// ConnectedCount reports the number of live printer channels.
func (d *Dispatcher) ConnectedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func decodePayload(job *db.PrintJob) (PrintPayload, error) {
	var payload PrintPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return PrintPayload{}, fmt.Errorf("failed to decode print payload for job %d: %w", job.ID, err)
	}
	payload.JobID = job.ID
	return payload, nil
}
