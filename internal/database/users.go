package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentcars/internal/domain"
	"rentcars/internal/models"
)

// FindOrCreateUser inserts the user unless one with the same email already exists
// and returns the stored row. Concurrent callers with the same email get the same user.
func (db *DB) FindOrCreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	query := `INSERT INTO users (id, email, name, role, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(email) DO NOTHING`
	_, err := db.ExecContext(ctx, query, user.ID, user.Email, user.Name, user.Role, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	stored, err := db.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, name, role, created_at, updated_at FROM users WHERE email = ?`
	var user models.User
	err := db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
