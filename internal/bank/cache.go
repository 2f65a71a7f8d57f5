package bank

import (
	"context"
	"time"

	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/kvstore"
)

// KVCache keeps the snapshot in the key-value store. Theory and operational
// questions live in one document so they are always replaced together.
type KVCache struct {
	store kvstore.Store
	ttl   time.Duration
}

// NewKVCache creates a KVCache. A zero ttl never expires.
func NewKVCache(store kvstore.Store, ttl time.Duration) *KVCache {
	return &KVCache{store: store, ttl: ttl}
}

func (c *KVCache) LoadSnapshot(ctx context.Context) (*Snapshot, bool, error) {
	var snap Snapshot
	ok, err := c.store.Get(ctx, config.CacheKey.BankSnapshotKey(), &snap)
	if err != nil || !ok {
		return nil, false, err
	}
	return &snap, true, nil
}

func (c *KVCache) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	return c.store.Set(ctx, config.CacheKey.BankSnapshotKey(), snap, c.ttl)
}
