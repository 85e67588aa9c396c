package db

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx, getUserByUsername, username).Scan(
		&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.UserTypeID, &u.UserType, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.UserTypeID, &u.UserType, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	result, err := s.db.ExecContext(ctx, insertUser, u.Username, u.Name, u.PasswordHash, u.UserTypeID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	u.ID = id
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u *User) error {
	if _, err := s.db.ExecContext(ctx, updateUser, u.Name, u.UserTypeID, u.ID); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	if _, err := s.db.ExecContext(ctx, updateUserPassword, passwordHash, id); err != nil {
		return fmt.Errorf("failed to update user password: %w", err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, deleteUser, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *Store) ListUserTypes(ctx context.Context) ([]UserType, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM user_types ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list user types: %w", err)
	}
	defer rows.Close()

	var types []UserType
	for rows.Next() {
		var ut UserType
		if err := rows.Scan(&ut.ID, &ut.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user type: %w", err)
		}
		types = append(types, ut)
	}
	return types, rows.Err()
}

func (s *Store) GetUserTypeByName(ctx context.Context, name string) (*UserType, error) {
	ut := &UserType{}
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM user_types WHERE name = ?", name).Scan(&ut.ID, &ut.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get user type: %w", err)
	}
	return ut, nil
}
