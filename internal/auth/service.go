// Package auth implements password-based authentication for the marketplace:
// registration, login, and logout with server-side token revocation.
package auth

import (
	"context"
	"errors"
	"fmt"

	"bazaar/internal/token"
	"bazaar/internal/users"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong
// password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the slice of the users repository the auth service needs
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
}

// Service defines the authentication operations
type Service interface {
	Register(ctx context.Context, name, email, password string) (*users.User, string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, accessToken string) error
}

type service struct {
	users      UserStore
	tokens     token.Manager
	bcryptCost int
}

// NewService creates a new authentication service
func NewService(userStore UserStore, tokens token.Manager) Service {
	return &service{
		users:      userStore,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Register creates a user with a bcrypt-hashed password and issues a token
// so the caller is authenticated immediately.
func (s *service) Register(ctx context.Context, name, email, password string) (*users.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, name, email, string(hash))
	if err != nil {
		return nil, "", err
	}

	tok, err := s.tokens.Issue(ctx, token.Identity{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return user, tok, nil
}

// Login verifies credentials and issues a fresh token
func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(ctx, token.Identity{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	})
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	return tok, nil
}

// Logout revokes the token server-side. Revoking an already-invalid token
// is a no-op.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	return s.tokens.Revoke(ctx, accessToken)
}
