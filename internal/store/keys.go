package store

import (
	"context"
	"fmt"
	"time"
)

// PutDoubleRecordKey stores a key that stays valid until expires.
func (s *Store) PutDoubleRecordKey(ctx context.Context, key string, expires time.Time) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO double_record_keys (double_record_key, expires)
		VALUES (?, ?)
		ON CONFLICT(double_record_key) DO UPDATE SET expires = excluded.expires
	`, key, expires.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("put double record key: %w", err)
	}
	return nil
}

// ConsumeDoubleRecordKey reports whether key is valid at now and removes it.
// The delete and the check are one statement, so a key is accepted at most
// once even under concurrent requests.
func (s *Store) ConsumeDoubleRecordKey(ctx context.Context, key string, now time.Time) (bool, error) {
	res, err := s.exec(ctx, s.db, `
		DELETE FROM double_record_keys WHERE double_record_key = ? AND expires > ?
	`, key, now.UTC().Format(timeLayout))
	if err != nil {
		return false, fmt.Errorf("consume double record key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume double record key: %w", err)
	}
	return n == 1, nil
}

// PurgeExpiredDoubleRecordKeys removes keys that expired before now and
// returns how many were removed.
func (s *Store) PurgeExpiredDoubleRecordKeys(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.exec(ctx, s.db, `
		DELETE FROM double_record_keys WHERE expires <= ?
	`, now.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge double record keys: %w", err)
	}
	return res.RowsAffected()
}
