// Package storage provides the storage tiers backing the result cache:
// in-memory, on-disk and redis, plus a chained composition of them. A tier
// is a plain byte-addressed key/value store; expiry policy (grace reads,
// deletion of expired entries) lives in the cache layer on top.
package storage

import (
	"context"
	"time"
)

// Entry is one stored value with its absolute-expiry bookkeeping.
type Entry struct {
	Value   []byte        `json:"value"`
	AddedAt time.Time     `json:"added_at"`
	TTL     time.Duration `json:"ttl"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.AddedAt) > e.TTL
}

// Store is a single storage tier. Get returns expired entries unchanged;
// callers decide what expiry means.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Store(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
}
