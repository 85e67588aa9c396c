package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ActiveWindow returns the intake window whose start/end bracket now, or
// sql.ErrNoRows when no window is currently open.
func (s *Store) ActiveWindow(ctx context.Context, now time.Time) (*IntakeWindow, error) {
	w := &IntakeWindow{}
	err := s.db.QueryRowContext(ctx, activeWindow, now, now).Scan(&w.ID, &w.StartsAt, &w.EndsAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get active window: %w", err)
	}
	return w, nil
}

func (s *Store) ListWindows(ctx context.Context) ([]IntakeWindow, error) {
	rows, err := s.db.QueryContext(ctx, listWindows)
	if err != nil {
		return nil, fmt.Errorf("failed to list intake windows: %w", err)
	}
	defer rows.Close()

	var windows []IntakeWindow
	for rows.Next() {
		var w IntakeWindow
		if err := rows.Scan(&w.ID, &w.StartsAt, &w.EndsAt); err != nil {
			return nil, fmt.Errorf("failed to scan intake window: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (s *Store) CreateWindow(ctx context.Context, w *IntakeWindow) error {
	result, err := s.db.ExecContext(ctx, insertWindow, w.StartsAt, w.EndsAt)
	if err != nil {
		return fmt.Errorf("failed to create intake window: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get intake window id: %w", err)
	}
	w.ID = id
	return nil
}

func (s *Store) UpdateWindow(ctx context.Context, w *IntakeWindow) error {
	if _, err := s.db.ExecContext(ctx, updateWindow, w.StartsAt, w.EndsAt, w.ID); err != nil {
		return fmt.Errorf("failed to update intake window: %w", err)
	}
	return nil
}

func (s *Store) DeleteWindow(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, deleteWindow, id); err != nil {
		return fmt.Errorf("failed to delete intake window: %w", err)
	}
	return nil
}
