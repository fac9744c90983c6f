package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "watchpost:cache:v1:"

// Redis is the shared storage tier: several watchpost instances behind one
// redis see each other's cached results.
type Redis struct {
	r *redis.Client
	m *redisStoreMetrics
}

func NewRedis(r *redis.Client) *Redis {
	return &Redis{
		r: r,
		m: newRedisStoreMetrics(),
	}
}

func (s *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	start := time.Now()
	defer s.m.GetDuration.UpdateDuration(start)

	data, err := s.r.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrapf(err, "cannot read redis cache entry for key %q", key)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, errors.Wrapf(err, "cannot decode redis cache entry for key %q", key)
	}

	return entry, true, nil
}

// Store keeps the entry in redis for twice its TTL: an entry must outlive
// its own expiry so the grace read still finds it.
func (s *Redis) Store(ctx context.Context, key string, entry Entry) error {
	start := time.Now()
	defer s.m.StoreDuration.UpdateDuration(start)

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrapf(err, "cannot encode redis cache entry for key %q", key)
	}

	if err := s.r.Set(ctx, redisKeyPrefix+key, data, 2*entry.TTL).Err(); err != nil {
		return errors.Wrapf(err, "cannot store redis cache entry for key %q", key)
	}

	return nil
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer s.m.DeleteDuration.UpdateDuration(start)

	if err := s.r.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return errors.Wrapf(err, "cannot delete redis cache entry for key %q", key)
	}

	return nil
}

type redisStoreMetrics struct {
	GetDuration    *metrics.Histogram
	StoreDuration  *metrics.Histogram
	DeleteDuration *metrics.Histogram
}

func newRedisStoreMetrics() *redisStoreMetrics {
	genMetricName := func(op string) string {
		return fmt.Sprintf(`watchpost_cache_redis_op_duration{op=%q}`, op)
	}

	return &redisStoreMetrics{
		GetDuration:    metrics.GetOrCreateHistogram(genMetricName("get")),
		StoreDuration:  metrics.GetOrCreateHistogram(genMetricName("store")),
		DeleteDuration: metrics.GetOrCreateHistogram(genMetricName("delete")),
	}
}
