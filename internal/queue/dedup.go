package queue

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers which fact ids were already recorded.  Claim reports
// true the first time an id is seen; Release forgets an id whose
// processing failed so a redelivery can retry it.
type Deduper interface {
	Claim(ctx context.Context, factID string) (bool, error)
	Release(ctx context.Context, factID string) error
}

// RedisDeduper claims ids with SET NX so several consumer processes
// share one view.  Keys expire after ttl.
type RedisDeduper struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper returns a RedisDeduper; ttl defaults to 24h.
func NewRedisDeduper(rdb *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	if prefix == "" {
		prefix = "fact"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (d *RedisDeduper) key(id string) string { return d.prefix + ":" + id }

func (d *RedisDeduper) Claim(ctx context.Context, factID string) (bool, error) {
	return d.rdb.SetNX(ctx, d.key(factID), 1, d.ttl).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, factID string) error {
	return d.rdb.Del(ctx, d.key(factID)).Err()
}

// MemoryDeduper is the single-process fallback used without Redis.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) Claim(_ context.Context, factID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[factID]; ok {
		return false, nil
	}
	d.seen[factID] = struct{}{}
	return true, nil
}

func (d *MemoryDeduper) Release(_ context.Context, factID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, factID)
	return nil
}
