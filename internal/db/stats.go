package db

import (
	"context"
	"fmt"
	"time"
)

// WindowItemCount is one row of the items-per-window breakdown.
type WindowItemCount struct {
	WindowID int64     `json:"window_id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Items    int64     `json:"items"`
}

func (s *Store) CountItemsByWindow(ctx context.Context) ([]WindowItemCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.starts_at, w.ends_at, COUNT(i.id)
		FROM intake_windows w
		LEFT JOIN items i ON i.intake_window_id = w.id
		GROUP BY w.id
		ORDER BY w.starts_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items by window: %w", err)
	}
	defer rows.Close()

	var counts []WindowItemCount
	for rows.Next() {
		var wc WindowItemCount
		if err := rows.Scan(&wc.WindowID, &wc.StartsAt, &wc.EndsAt, &wc.Items); err != nil {
			return nil, fmt.Errorf("failed to scan window count: %w", err)
		}
		counts = append(counts, wc)
	}
	return counts, rows.Err()
}

func (s *Store) CountPrintJobsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM print_jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count print jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan print job count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
