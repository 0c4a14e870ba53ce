package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/postboard/apiserver/internal/auth"
	"github.com/postboard/apiserver/internal/store"
	"github.com/postboard/apiserver/types"
)

// fallbackDummyHash is used only if hashing the dummy password fails.
const fallbackDummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZPtXC3O4sBpJlt1H1ECa6K"

// TokenIssuer issues and verifies access tokens.
type TokenIssuer interface {
	Issue(subject string) (auth.Token, error)
	Verify(token string) (string, error)
}

// AuthService implements login and bearer token authentication.
type AuthService struct {
	users  UserRepository
	hasher auth.Hasher
	tokens TokenIssuer

	// dummyHash is compared against when the username is unknown so both
	// login failures cost one comparison at the configured cost.
	dummyHash string
}

func NewAuthService(users UserRepository, hasher auth.Hasher, tokens TokenIssuer) *AuthService {
	dummy, err := hasher.Hash("postboard-dummy-password")
	if err != nil {
		dummy = fallbackDummyHash
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, dummyHash: dummy}
}

// Login exchanges a username and password for an access token. Unknown users
// and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (auth.Token, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return auth.Token{}, ErrInvalidCredentials
		}
		return auth.Token{}, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return auth.Token{}, ErrInvalidCredentials
	}

	return s.tokens.Issue(user.Username)
}

// Authenticate resolves a bearer token to its user. Token failures and
// unknown subjects are both reported as auth.ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) (types.User, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %v", auth.ErrUnauthenticated, err)
	}

	user, err := s.users.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, auth.ErrUnauthenticated
		}
		return types.User{}, fmt.Errorf("lookup token subject: %w", err)
	}
	return user, nil
}
