package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func (s *Store) CreateItem(ctx context.Context, item *Item) error {
	result, err := s.db.ExecContext(ctx, insertItem,
		item.Code, item.CustomerID, item.DepartmentID, item.StatusID,
		item.IntakeWindowID, item.ItemDescription, item.ProblemDescription,
		item.RegisteredAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get item id: %w", err)
	}
	item.ID = id
	return nil
}

func (s *Store) GetItemByCode(ctx context.Context, code string) (*ItemDetail, error) {
	item, err := scanItemDetail(s.db.QueryRowContext(ctx, getItemByCode, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	usage, err := s.ListItemUsage(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	item.Materials = usage
	return item, nil
}

func (s *Store) ItemCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, itemCodeExists, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check item code: %w", err)
	}
	return exists, nil
}

func (s *Store) ListItems(ctx context.Context) ([]*ItemDetail, error) {
	rows, err := s.db.QueryContext(ctx, listItems)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*ItemDetail
	for rows.Next() {
		item, err := scanItemDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) ListItemSummaries(ctx context.Context) ([]ItemSummary, error) {
	rows, err := s.db.QueryContext(ctx, listItemSummaries)
	if err != nil {
		return nil, fmt.Errorf("failed to list item summaries: %w", err)
	}
	defer rows.Close()

	var items []ItemSummary
	for rows.Next() {
		var it ItemSummary
		if err := rows.Scan(&it.Code, &it.Status, &it.ItemDescription, &it.Department, &it.RegisteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan item summary: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) MarkItemInProgress(ctx context.Context, itemID, statusID int64, startedAt time.Time) error {
	if _, err := s.db.ExecContext(ctx, markItemInProgress, statusID, startedAt, itemID); err != nil {
		return fmt.Errorf("failed to mark item in progress: %w", err)
	}
	return nil
}

func (s *Store) MarkItemDelivered(ctx context.Context, itemID, statusID int64, deliveredAt time.Time) error {
	if _, err := s.db.ExecContext(ctx, markItemDelivered, statusID, deliveredAt, itemID); err != nil {
		return fmt.Errorf("failed to mark item delivered: %w", err)
	}
	return nil
}

// CompleteItem sets the item ready (status, advice, timestamp) and upserts the
// repair outcome in one transaction.
func (s *Store) CompleteItem(ctx context.Context, itemID, statusID int64, advice, outcome string, readyAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, completeItem, statusID, advice, readyAt, itemID); err != nil {
		return fmt.Errorf("failed to complete item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, upsertOutcome, itemID, outcome, readyAt); err != nil {
		return fmt.Errorf("failed to upsert repair outcome: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateItemParams enumerates the fields an item update may touch. Nil fields
// are left unchanged.
type UpdateItemParams struct {
	ItemDescription    *string
	ProblemDescription *string
	DepartmentID       *int64
	StatusID           *int64
}

func (s *Store) UpdateItem(ctx context.Context, itemID int64, params UpdateItemParams) error {
	set := ""
	var args []interface{}

	appendSet := func(column string, value interface{}) {
		if set != "" {
			set += ", "
		}
		set += column + " = ?"
		args = append(args, value)
	}

	if params.ItemDescription != nil {
		appendSet("item_description", *params.ItemDescription)
	}
	if params.ProblemDescription != nil {
		appendSet("problem_description", *params.ProblemDescription)
	}
	if params.DepartmentID != nil {
		appendSet("department_id", *params.DepartmentID)
	}
	if params.StatusID != nil {
		appendSet("status_id", *params.StatusID)
	}

	if set == "" {
		return nil
	}

	args = append(args, itemID)
	if _, err := s.db.ExecContext(ctx, "UPDATE items SET "+set+" WHERE id = ?", args...); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// DeleteItemCascade removes the item together with its usage rows, print jobs
// and repair outcome as a single transaction.
func (s *Store) DeleteItemCascade(ctx context.Context, itemID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		query string
		desc  string
	}{
		{"DELETE FROM material_usage WHERE item_id = ?", "material usage"},
		{"DELETE FROM print_jobs WHERE item_id = ?", "print jobs"},
		{"DELETE FROM repair_outcomes WHERE item_id = ?", "repair outcome"},
		{"DELETE FROM items WHERE id = ?", "item"},
	}

	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, itemID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", step.desc, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) ListItemUsage(ctx context.Context, itemID int64) ([]UsageDetail, error) {
	rows, err := s.db.QueryContext(ctx, listItemUsage, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list material usage: %w", err)
	}
	defer rows.Close()

	var usage []UsageDetail
	for rows.Next() {
		var u UsageDetail
		if err := rows.Scan(&u.MaterialID, &u.Material, &u.Quantity, &u.UnitPriceCents, &u.TotalCents); err != nil {
			return nil, fmt.Errorf("failed to scan material usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// AddUsage accumulates delta onto the existing quantity, creating the row when
// missing. A resulting quantity of zero or below removes the row. Upsert and
// prune run in one transaction so no reader sees the intermediate quantity.
func (s *Store) AddUsage(ctx context.Context, itemID, materialID, delta int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, addUsage, itemID, materialID, delta); err != nil {
		return fmt.Errorf("failed to add material usage: %w", err)
	}
	if _, err := tx.ExecContext(ctx, pruneUsage, itemID, materialID); err != nil {
		return fmt.Errorf("failed to prune material usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetUsage overwrites the quantity. Zero or below removes the row.
func (s *Store) SetUsage(ctx context.Context, itemID, materialID, quantity int64) error {
	if quantity <= 0 {
		return s.RemoveUsage(ctx, itemID, materialID)
	}
	if _, err := s.db.ExecContext(ctx, setUsage, itemID, materialID, quantity); err != nil {
		return fmt.Errorf("failed to set material usage: %w", err)
	}
	return nil
}

func (s *Store) RemoveUsage(ctx context.Context, itemID, materialID int64) error {
	if _, err := s.db.ExecContext(ctx, removeUsage, itemID, materialID); err != nil {
		return fmt.Errorf("failed to remove material usage: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItemDetail(row rowScanner) (*ItemDetail, error) {
	item := &ItemDetail{}
	var phone sql.NullString
	var startedAt, readyAt, deliveredAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.Code, &item.CustomerID, &item.DepartmentID, &item.StatusID,
		&item.IntakeWindowID, &item.ItemDescription, &item.ProblemDescription, &item.Advice,
		&item.RegisteredAt, &startedAt, &readyAt, &deliveredAt,
		&item.Status, &item.CustomerName, &phone, &item.CustomerType, &item.Department,
		&item.RepairOutcome,
	)
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		item.CustomerPhone = phone.String
	}
	if startedAt.Valid {
		item.StartedAt = &startedAt.Time
	}
	if readyAt.Valid {
		item.ReadyAt = &readyAt.Time
	}
	if deliveredAt.Valid {
		item.DeliveredAt = &deliveredAt.Time
	}
	return item, nil
}
