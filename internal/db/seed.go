package db

import (
	"context"
	"fmt"
)

// SeedDefaults inserts the fixed lookup rows the application depends on:
// lifecycle statuses, user types, customer types and a default department.
// Existing rows are left untouched.
func (s *Store) SeedDefaults(ctx context.Context) error {
	seeds := []struct {
		table  string
		values []string
	}{
		{"statuses", []string{"Registered", "In Progress", "Ready", "Delivered"}},
		{"user_types", []string{"Admin", "Counter", "Repairer"}},
		{"customer_types", []string{"Student", "External"}},
		{"departments", []string{"Electronics"}},
	}

	for _, seed := range seeds {
		for _, name := range seed.values {
			query := fmt.Sprintf("INSERT INTO %s (name) VALUES (?) ON CONFLICT(name) DO NOTHING", seed.table)
			if _, err := s.db.ExecContext(ctx, query, name); err != nil {
				return fmt.Errorf("failed to seed %s: %w", seed.table, err)
			}
		}
	}

	return nil
}
