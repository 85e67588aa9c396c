package db

import (
	"context"
	"database/sql"
	"fmt"
)

// FindCustomer looks a customer up by exact name and phone. Returns
// sql.ErrNoRows when no such customer exists.
func (s *Store) FindCustomer(ctx context.Context, name, phone string) (*Customer, error) {
	c := &Customer{}
	err := s.db.QueryRowContext(ctx, findCustomer, name, phone).Scan(
		&c.ID, &c.Name, &c.Phone, &c.CustomerTypeID, &c.CustomerType, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c *Customer) error {
	var phone interface{}
	if c.Phone != "" {
		phone = c.Phone
	}

	result, err := s.db.ExecContext(ctx, insertCustomer, c.Name, phone, c.CustomerTypeID)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get customer id: %w", err)
	}
	c.ID = id
	return nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]*Customer, error) {
	rows, err := s.db.QueryContext(ctx, listCustomers)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*Customer
	for rows.Next() {
		c := &Customer{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CustomerTypeID, &c.CustomerType, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}
