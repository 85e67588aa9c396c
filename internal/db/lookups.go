package db

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) ListStatuses(ctx context.Context) ([]Status, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM statuses ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		var st Status
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

func (s *Store) CreateStatus(ctx context.Context, name string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "INSERT INTO statuses (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create status: %w", err)
	}
	return result.LastInsertId()
}

func (s *Store) GetCustomerTypeByName(ctx context.Context, name string) (*CustomerType, error) {
	ct := &CustomerType{}
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM customer_types WHERE name = ?", name).Scan(&ct.ID, &ct.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get customer type: %w", err)
	}
	return ct, nil
}

func (s *Store) ListCustomerTypes(ctx context.Context) ([]CustomerType, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM customer_types ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list customer types: %w", err)
	}
	defer rows.Close()

	var types []CustomerType
	for rows.Next() {
		var ct CustomerType
		if err := rows.Scan(&ct.ID, &ct.Name); err != nil {
			return nil, fmt.Errorf("failed to scan customer type: %w", err)
		}
		types = append(types, ct)
	}
	return types, rows.Err()
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM departments ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// FirstDepartment returns the lowest-id department, used as the registration
// default when no department is supplied.
func (s *Store) FirstDepartment(ctx context.Context) (*Department, error) {
	d := &Department{}
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM departments ORDER BY id ASC LIMIT 1").Scan(&d.ID, &d.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get first department: %w", err)
	}
	return d, nil
}

func (s *Store) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	d := &Department{}
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM departments WHERE id = ?", id).Scan(&d.ID, &d.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return d, nil
}

func (s *Store) CreateDepartment(ctx context.Context, name string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "INSERT INTO departments (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create department: %w", err)
	}
	return result.LastInsertId()
}

func (s *Store) UpdateDepartment(ctx context.Context, id int64, name string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE departments SET name = ? WHERE id = ?", name, id); err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}
	return nil
}

func (s *Store) DeleteDepartment(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM departments WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}
	return nil
}

func (s *Store) CountItemsByDepartment(ctx context.Context, id int64) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items WHERE department_id = ?", id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items by department: %w", err)
	}
	return count, nil
}
