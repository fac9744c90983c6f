// Package cache is the policy layer over the storage tiers: TTL stamping,
// the one-time grace read of expired entries, and a memoization helper.
package cache

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/pitkley/watchpost/internal/storage"
	"github.com/pitkley/watchpost/pkg/common/wplog"
)

const shardCount = 64

// Cache wraps a storage tier with expiry policy. Storage failures are
// logged and surface as misses; a broken cache back-end degrades checks to
// uncached, it never fails them.
type Cache struct {
	store storage.Store
	l     *slog.Logger
	now   func() time.Time

	// shards serialize the delete-on-grace-read per key, so exactly one
	// concurrent reader observes an expired entry.
	shards [shardCount]sync.Mutex
}

func New(store storage.Store, l *slog.Logger) *Cache {
	if l == nil {
		l = wplog.NopLogger()
	}

	return &Cache{
		store: store,
		l:     l.With(wplog.Component("cache")),
		now:   time.Now,
	}
}

// Get returns the entry for key. Live entries are returned as-is. An
// expired entry is returned exactly once when allowExpired is false: the
// grace read, after which the entry is deleted and later readers miss.
// With allowExpired true, expired entries are returned and left in place.
func (c *Cache) Get(ctx context.Context, key string, allowExpired bool) (storage.Entry, bool) {
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.l.WarnContext(ctx, "cache read failed, treating as miss",
			slog.String("key", key), wplog.Error(err))
		return storage.Entry{}, false
	}
	if !ok {
		return storage.Entry{}, false
	}

	if !entry.Expired(c.now()) || allowExpired {
		return entry, true
	}

	return c.graceRead(ctx, key)
}

// graceRead re-reads the key under its shard lock and deletes it, so that
// of all concurrent live readers exactly one gets the expired value.
func (c *Cache) graceRead(ctx context.Context, key string) (storage.Entry, bool) {
	shard := &c.shards[shardFor(key)]
	shard.Lock()
	defer shard.Unlock()

	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.l.WarnContext(ctx, "cache read failed, treating as miss",
			slog.String("key", key), wplog.Error(err))
		return storage.Entry{}, false
	}
	if !ok {
		// another reader consumed the grace read first
		return storage.Entry{}, false
	}
	if !entry.Expired(c.now()) {
		// refreshed by a concurrent writer since the first read
		return entry, true
	}

	if err := c.store.Delete(ctx, key); err != nil {
		c.l.WarnContext(ctx, "cannot delete expired cache entry, withholding grace read",
			slog.String("key", key), wplog.Error(err))
		return storage.Entry{}, false
	}

	return entry, true
}

// Store saves value under key, stamping the entry with the current time.
func (c *Cache) Store(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := storage.Entry{
		Value:   value,
		AddedAt: c.now(),
		TTL:     ttl,
	}
	if err := c.store.Store(ctx, key, entry); err != nil {
		return errors.Wrapf(err, "cannot store cache entry for key %q", key)
	}

	return nil
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))

	return h.Sum32() % shardCount
}
