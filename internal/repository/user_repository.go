package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sundris/auctionhouse/internal/model"
	"github.com/sundris/auctionhouse/pkg/database"
)

// UserRepository provides data access for users.
type UserRepository struct{}

// NewUserRepository creates a new UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// GetByUsername retrieves a user by username.
// Returns nil, nil if the user is not found (service layer handles this).
func (r *UserRepository) GetByUsername(ctx context.Context, q database.Querier, username string) (*model.User, error) {
	var user model.User
	err := q.QueryRowContext(ctx,
		`SELECT id, username FROM users WHERE username = ?`, username,
	).Scan(&user.ID, &user.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &user, nil
}

// Insert inserts a new user and returns its id.
func (r *UserRepository) Insert(ctx context.Context, q database.Querier, username string) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO users (username) VALUES (?)`, username)
	if err != nil {
		return 0, fmt.Errorf("insert user %s: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user id for %s: %w", username, err)
	}
	return id, nil
}
