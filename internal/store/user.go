package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/postboard/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = $1`
	return r.getOne(ctx, query, username)
}

// Create inserts a user, assigning its ID and creation time.
// Duplicate usernames or emails yield ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.ID = uuid.New()
	user.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (types.User, error) {
	var user types.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}
