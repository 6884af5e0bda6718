package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"campcal/internal/app/middleware"
)

// IdempotencyStore keeps replayable command results until ttl passes.
type IdempotencyStore struct {
	items *cache.Cache
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{items: cache.New(ttl, 10*time.Minute)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return v.(middleware.IdempotencyRecord), true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.items.SetDefault(rec.Key, rec)
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
