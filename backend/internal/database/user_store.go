package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/nftmarket/backend/internal/accounts"
	"github.com/user/nftmarket/backend/internal/models"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// UserStore keeps accounts in the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// CreateUser inserts a new user into the database.
func (s *UserStore) CreateUser(ctx context.Context, username string, passwordHash string) (*models.User, error) {
	user := &models.User{
		Username: username,
		Password: passwordHash, // This is the hash
	}

	query := `INSERT INTO users (username, password_hash) VALUES ($1, $2)
			  RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, query, username, passwordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, accounts.ErrUsernameTaken
		}
		return nil, fmt.Errorf("error creating user %s: %w", username, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by their username.
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`

	err := s.pool.QueryRow(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.Password, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // User not found, return nil without error
		}
		return nil, err
	}
	return user, nil
}
