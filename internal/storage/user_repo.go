package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"chatdoc/internal/service"
)

// UserStore defines the interface for user account storage.
type UserStore interface {
	// Insert inserts a new user. A duplicate email returns service.ErrConflict.
	Insert(ctx context.Context, user *UserRecord) error
	// GetByID gets a user by id. Returns service.ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*UserRecord, error)
	// GetByEmail gets a user by email. Returns service.ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
}

// UserRepo provides methods for user operations.
// It implements the UserStore interface.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Insert inserts a new user. The user.ID must be set before calling.
func (r *UserRepo) Insert(ctx context.Context, user *UserRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, email, full_name, password_hash) VALUES (?, ?, ?, ?)",
		user.ID, user.Email, user.FullName, user.PasswordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("email already registered: %w", service.ErrConflict)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID gets a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*UserRecord, error) {
	return r.get(ctx, "id", id)
}

// GetByEmail gets a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return r.get(ctx, "email", email)
}

func (r *UserRepo) get(ctx context.Context, column, value string) (*UserRecord, error) {
	var user UserRecord
	var fullName sql.NullString
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, email, full_name, password_hash, created_at FROM users WHERE %s = ?", column),
		value,
	).Scan(&user.ID, &user.Email, &fullName, &user.PasswordHash, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.FullName = fullName.String
	return &user, nil
}
