package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/postboard/apiserver/internal/auth"
	"github.com/postboard/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	hasher auth.Hasher
}

func NewUserService(repo UserRepository, hasher auth.Hasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

// Register hashes the password and stores a new user.
func (s *UserService) Register(ctx context.Context, username, email, password string) (types.User, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
	})
	if err != nil {
		return types.User{}, fmt.Errorf("create user %q: %w", username, err)
	}
	return user, nil
}

// Profile returns the named user's record if requester is that user.
// A missing user is reported before the ownership check.
func (s *UserService) Profile(ctx context.Context, username string, requester types.User) (types.User, error) {
	target, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return types.User{}, err
	}
	if err := auth.AuthorizeProfile(target, requester); err != nil {
		return types.User{}, err
	}
	return target, nil
}
