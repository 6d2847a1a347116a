// Package auth verifies the user, group and password of an update request.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/recordupdate/internal/store"
)

// Credentials are the authentication arguments of a request.
type Credentials struct {
	User     string `json:"user" yaml:"user"`
	Group    string `json:"group" yaml:"group"`
	Password string `json:"password" yaml:"password"`
}

// CredentialStore returns the stored password hash of a user in a group.
// It returns store.ErrUnknownUser for unknown users. *store.Store
// implements it.
type CredentialStore interface {
	PasswordHash(ctx context.Context, userID, groupID string) (string, error)
}

// Authenticator checks credentials against bcrypt hashes.
type Authenticator struct {
	users CredentialStore
}

// New creates an Authenticator.
func New(users CredentialStore) *Authenticator {
	return &Authenticator{users: users}
}

// Verify reports whether the password matches the stored hash. Unknown
// users and wrong passwords are reported as false without an error.
func (a *Authenticator) Verify(ctx context.Context, c Credentials) (bool, error) {
	hash, err := a.users.PasswordHash(ctx, c.User, c.Group)
	if errors.Is(err, store.ErrUnknownUser) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("authenticate %s/%s: %w", c.Group, c.User, err)
	}
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(c.Password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("authenticate %s/%s: %w", c.Group, c.User, err)
	}
	return true, nil
}

// HashPassword returns the bcrypt hash stored for a new user.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
