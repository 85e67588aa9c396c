package db

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) ListMaterials(ctx context.Context) ([]Material, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, unit_price_cents FROM materials ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	var materials []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Name, &m.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func (s *Store) GetMaterial(ctx context.Context, id int64) (*Material, error) {
	m := &Material{}
	err := s.db.QueryRowContext(ctx, "SELECT id, name, unit_price_cents FROM materials WHERE id = ?", id).Scan(
		&m.ID, &m.Name, &m.UnitPriceCents)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return m, nil
}

func (s *Store) CreateMaterial(ctx context.Context, m *Material) error {
	result, err := s.db.ExecContext(ctx, "INSERT INTO materials (name, unit_price_cents) VALUES (?, ?)",
		m.Name, m.UnitPriceCents)
	if err != nil {
		return fmt.Errorf("failed to create material: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get material id: %w", err)
	}
	m.ID = id
	return nil
}

func (s *Store) UpdateMaterial(ctx context.Context, m *Material) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE materials SET name = ?, unit_price_cents = ? WHERE id = ?",
		m.Name, m.UnitPriceCents, m.ID); err != nil {
		return fmt.Errorf("failed to update material: %w", err)
	}
	return nil
}

func (s *Store) DeleteMaterial(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM materials WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}
	return nil
}

func (s *Store) CountUsageByMaterial(ctx context.Context, id int64) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM material_usage WHERE material_id = ?", id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count material usage: %w", err)
	}
	return count, nil
}
