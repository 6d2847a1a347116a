package doublerecord

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/recordupdate/internal/engine"
)

// DefaultKeyTTL is how long an issued key stays redeemable.
const DefaultKeyTTL = 24 * time.Hour

// KeyStore persists keys. *store.Store implements it.
type KeyStore interface {
	PutDoubleRecordKey(ctx context.Context, key string, expires time.Time) error
	ConsumeDoubleRecordKey(ctx context.Context, key string, now time.Time) (bool, error)
}

// Keys issues and redeems single-use confirmation keys.
type Keys struct {
	store KeyStore
	ids   engine.IDGenerator
	clock engine.Clock
	ttl   time.Duration
}

// NewKeys creates a key manager. A zero ttl means DefaultKeyTTL.
func NewKeys(store KeyStore, ids engine.IDGenerator, clock engine.Clock, ttl time.Duration) *Keys {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &Keys{store: store, ids: ids, clock: clock, ttl: ttl}
}

// Issue mints and stores a new key.
func (k *Keys) Issue(ctx context.Context) (string, error) {
	key := k.ids.Generate()
	if err := k.store.PutDoubleRecordKey(ctx, key, k.clock.Now().Add(k.ttl)); err != nil {
		return "", fmt.Errorf("issue double record key: %w", err)
	}
	return key, nil
}

// Redeem consumes key. It reports false for unknown, expired or already
// used keys.
func (k *Keys) Redeem(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	ok, err := k.store.ConsumeDoubleRecordKey(ctx, key, k.clock.Now())
	if err != nil {
		return false, fmt.Errorf("redeem double record key: %w", err)
	}
	return ok, nil
}
