package practice

import (
	"context"

	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/kvstore"
	"github.com/aitrainer/trainer-backend/internal/model"
)

// KVLocalStore keeps progress in the key-value store under the user's
// practice key.
type KVLocalStore struct {
	store kvstore.Store
}

// NewKVLocalStore creates a KVLocalStore.
func NewKVLocalStore(store kvstore.Store) *KVLocalStore {
	return &KVLocalStore{store: store}
}

func (s *KVLocalStore) Load(ctx context.Context, key Key) (*model.ProgressState, bool, error) {
	var state model.ProgressState
	ok, err := s.store.Get(ctx, config.CacheKey.PracticeProgressKey(key.UserID, key.CategoryKey), &state)
	if err != nil || !ok {
		return nil, false, err
	}
	return &state, true, nil
}

func (s *KVLocalStore) Save(ctx context.Context, state *model.ProgressState) error {
	return s.store.Set(ctx, config.CacheKey.PracticeProgressKey(state.UserID, state.CategoryKey), state, 0)
}

func (s *KVLocalStore) Delete(ctx context.Context, key Key) error {
	return s.store.Remove(ctx, config.CacheKey.PracticeProgressKey(key.UserID, key.CategoryKey))
}
