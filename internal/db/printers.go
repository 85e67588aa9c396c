package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertPrinterConnection claims or creates the printer identity for name,
// recording the live connection id and connect time.
func (s *Store) UpsertPrinterConnection(ctx context.Context, name, connectionID string, at time.Time) (*Printer, error) {
	if _, err := s.db.ExecContext(ctx, insertPrinter, name, connectionID, at); err != nil {
		return nil, fmt.Errorf("failed to upsert printer: %w", err)
	}
	return s.GetPrinterByName(ctx, name)
}

func (s *Store) GetPrinterByName(ctx context.Context, name string) (*Printer, error) {
	return s.scanPrinter(s.db.QueryRowContext(ctx, getPrinterByName, name))
}

func (s *Store) GetPrinterByID(ctx context.Context, id int64) (*Printer, error) {
	return s.scanPrinter(s.db.QueryRowContext(ctx, getPrinterByID, id))
}

func (s *Store) scanPrinter(row *sql.Row) (*Printer, error) {
	p := &Printer{}
	var lastConnected sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.ConnectionID, &p.Connected, &lastConnected)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get printer: %w", err)
	}
	if lastConnected.Valid {
		p.LastConnectedAt = &lastConnected.Time
	}
	return p, nil
}

func (s *Store) ListPrinters(ctx context.Context) ([]*Printer, error) {
	return s.queryPrinters(ctx, listPrinters)
}

func (s *Store) ListConnectedPrinters(ctx context.Context) ([]*Printer, error) {
	return s.queryPrinters(ctx, listConnectedPrinters)
}

func (s *Store) queryPrinters(ctx context.Context, query string) ([]*Printer, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()

	var printers []*Printer
	for rows.Next() {
		p := &Printer{}
		var lastConnected sql.NullTime
		if err := rows.Scan(&p.ID, &p.Name, &p.ConnectionID, &p.Connected, &lastConnected); err != nil {
			return nil, fmt.Errorf("failed to scan printer: %w", err)
		}
		if lastConnected.Valid {
			p.LastConnectedAt = &lastConnected.Time
		}
		printers = append(printers, p)
	}
	return printers, rows.Err()
}

// MarkPrinterDisconnected clears the connection id for whichever printer holds
// it and flags the printer as disconnected.
func (s *Store) MarkPrinterDisconnected(ctx context.Context, connectionID string) error {
	if _, err := s.db.ExecContext(ctx, disconnectPrinter, connectionID); err != nil {
		return fmt.Errorf("failed to mark printer disconnected: %w", err)
	}
	return nil
}

func (s *Store) CreatePrintJob(ctx context.Context, job *PrintJob) error {
	result, err := s.db.ExecContext(ctx, insertPrintJob, job.PrinterID, job.ItemID, job.Payload)
	if err != nil {
		return fmt.Errorf("failed to create print job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get print job id: %w", err)
	}
	job.ID = id
	job.Status = PrintJobPending
	return nil
}

func (s *Store) GetPrintJob(ctx context.Context, id int64) (*PrintJob, error) {
	job := &PrintJob{}
	var sentAt, completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, getPrintJob, id).Scan(
		&job.ID, &job.PrinterID, &job.ItemID, &job.Payload, &job.Status,
		&job.ErrorMessage, &job.CreatedAt, &sentAt, &completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get print job: %w", err)
	}
	if sentAt.Valid {
		job.SentAt = &sentAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

// ListPendingJobs returns the pending backlog for one printer in creation order.
func (s *Store) ListPendingJobs(ctx context.Context, printerID int64) ([]*PrintJob, error) {
	rows, err := s.db.QueryContext(ctx, listPendingJobs, printerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*PrintJob
	for rows.Next() {
		job := &PrintJob{}
		var sentAt, completedAt sql.NullTime
		if err := rows.Scan(&job.ID, &job.PrinterID, &job.ItemID, &job.Payload, &job.Status,
			&job.ErrorMessage, &job.CreatedAt, &sentAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan print job: %w", err)
		}
		if sentAt.Valid {
			job.SentAt = &sentAt.Time
		}
		if completedAt.Valid {
			job.CompletedAt = &completedAt.Time
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) ListPrintJobs(ctx context.Context, status string, limit, offset int) ([]*PrintJob, error) {
	query := `
		SELECT id, printer_id, item_id, payload, status, error_message, created_at, sent_at, completed_at
		FROM print_jobs
	`
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list print jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*PrintJob
	for rows.Next() {
		job := &PrintJob{}
		var sentAt, completedAt sql.NullTime
		if err := rows.Scan(&job.ID, &job.PrinterID, &job.ItemID, &job.Payload, &job.Status,
			&job.ErrorMessage, &job.CreatedAt, &sentAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan print job: %w", err)
		}
		if sentAt.Valid {
			job.SentAt = &sentAt.Time
		}
		if completedAt.Valid {
			job.CompletedAt = &completedAt.Time
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) MarkPrintJobSent(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, markPrintJobSent, at, id); err != nil {
		return fmt.Errorf("failed to mark print job sent: %w", err)
	}
	return nil
}

func (s *Store) FinishPrintJob(ctx context.Context, id int64, status, errMsg string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, finishPrintJob, status, errMsg, at, id); err != nil {
		return fmt.Errorf("failed to finish print job: %w", err)
	}
	return nil
}

// ResetPrintJob moves a pending or failed job back to pending for another
// delivery attempt. Returns false when the job was in neither state.
func (s *Store) ResetPrintJob(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, resetPrintJob, id)
	if err != nil {
		return false, fmt.Errorf("failed to reset print job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}
