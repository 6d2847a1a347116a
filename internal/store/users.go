package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUnknownUser is returned when no password is stored for a user.
var ErrUnknownUser = errors.New("unknown user")

// PutUser stores or replaces the password hash of a user in a group.
func (s *Store) PutUser(ctx context.Context, userID, groupID, passwordHash string) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO users (user_id, group_id, password_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, group_id) DO UPDATE SET password_hash = excluded.password_hash
	`, userID, groupID, passwordHash)
	if err != nil {
		return fmt.Errorf("put user %s/%s: %w", groupID, userID, err)
	}
	return nil
}

// PasswordHash returns the stored hash for a user in a group, or
// ErrUnknownUser.
func (s *Store) PasswordHash(ctx context.Context, userID, groupID string) (string, error) {
	var hash string
	err := s.queryRow(ctx, s.db, `
		SELECT password_hash FROM users WHERE user_id = ? AND group_id = ?
	`, userID, groupID).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUnknownUser
		}
		return "", fmt.Errorf("password hash %s/%s: %w", groupID, userID, err)
	}
	return hash, nil
}
