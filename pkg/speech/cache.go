package speech

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// AudioIndex remembers which file holds the clip for a cache key.
type AudioIndex interface {
	Lookup(ctx context.Context, key string) (string, bool)
	Remember(ctx context.Context, key, file string)
}

// RedisIndex shares the clip index between instances.
type RedisIndex struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisIndex(rdb *redis.Client, ttl time.Duration) *RedisIndex {
	return &RedisIndex{rdb: rdb, prefix: "tts:clip:", ttl: ttl}
}

func (r *RedisIndex) Lookup(ctx context.Context, key string) (string, bool) {
	file, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if err != nil {
		return "", false
	}
	return file, true
}

func (r *RedisIndex) Remember(ctx context.Context, key, file string) {
	r.rdb.Set(ctx, r.prefix+key, file, r.ttl)
}

// MemoryIndex is the single-instance fallback when redis is unreachable.
type MemoryIndex struct {
	cache *cache.Cache
}

func NewMemoryIndex(ttl time.Duration) *MemoryIndex {
	return &MemoryIndex{cache: cache.New(ttl, ttl/2)}
}

func (m *MemoryIndex) Lookup(_ context.Context, key string) (string, bool) {
	if x, found := m.cache.Get(key); found {
		return x.(string), true
	}
	return "", false
}

func (m *MemoryIndex) Remember(_ context.Context, key, file string) {
	m.cache.Set(key, file, cache.DefaultExpiration)
}
