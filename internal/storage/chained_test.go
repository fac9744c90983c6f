package storage

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/pitkley/watchpost/pkg/common/wplog"
)

type brokenStore struct {
	err error
}

func (b *brokenStore) Get(context.Context, string) (Entry, bool, error) {
	return Entry{}, false, b.err
}

func (b *brokenStore) Store(context.Context, string, Entry) error { return b.err }

func (b *brokenStore) Delete(context.Context, string) error { return b.err }

func TestChained_FirstTierHit(t *testing.T) {
	fast := NewMemory(MemoryConfig{})
	slow := NewMemory(MemoryConfig{})
	chained := NewChained(wplog.NopLogger(), fast, slow)
	ctx := context.Background()

	entry := Entry{Value: []byte("v"), AddedAt: time.Now(), TTL: time.Minute}
	require.NoError(t, fast.Store(ctx, "k", entry))

	got, ok, err := chained.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.Value, got.Value)
}

func TestChained_BackFillsEarlierTiers(t *testing.T) {
	fast := NewMemory(MemoryConfig{})
	slow := NewMemory(MemoryConfig{})
	chained := NewChained(wplog.NopLogger(), fast, slow)
	ctx := context.Background()

	entry := Entry{Value: []byte("v"), AddedAt: time.Now(), TTL: time.Minute}
	require.NoError(t, slow.Store(ctx, "k", entry))

	_, ok, err := chained.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = fast.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestChained_SkipsFailingTier(t *testing.T) {
	broken := &brokenStore{err: errors.New("tier down")}
	slow := NewMemory(MemoryConfig{})
	chained := NewChained(wplog.NopLogger(), broken, slow)
	ctx := context.Background()

	entry := Entry{Value: []byte("v"), AddedAt: time.Now(), TTL: time.Minute}
	require.NoError(t, slow.Store(ctx, "k", entry))

	got, ok, err := chained.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.Value, got.Value)
}

func TestChained_MissWithErrors(t *testing.T) {
	broken := &brokenStore{err: errors.New("tier down")}
	chained := NewChained(wplog.NopLogger(), broken, NewMemory(MemoryConfig{}))

	_, ok, err := chained.Get(context.Background(), "absent")
	require.False(t, ok)
	require.Error(t, err)
}

func TestChained_CleanMiss(t *testing.T) {
	chained := NewChained(wplog.NopLogger(), NewMemory(MemoryConfig{}), NewMemory(MemoryConfig{}))

	_, ok, err := chained.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestChained_StoreFansOut(t *testing.T) {
	fast := NewMemory(MemoryConfig{})
	slow := NewMemory(MemoryConfig{})
	chained := NewChained(wplog.NopLogger(), fast, slow)
	ctx := context.Background()

	entry := Entry{Value: []byte("v"), AddedAt: time.Now(), TTL: time.Minute}
	require.NoError(t, chained.Store(ctx, "k", entry))

	_, ok, _ := fast.Get(ctx, "k")
	require.True(t, ok)
	_, ok, _ = slow.Get(ctx, "k")
	require.True(t, ok)
}

func TestChained_StoreReportsTierErrors(t *testing.T) {
	broken := &brokenStore{err: errors.New("tier down")}
	fast := NewMemory(MemoryConfig{})
	chained := NewChained(wplog.NopLogger(), fast, broken)
	ctx := context.Background()

	err := chained.Store(ctx, "k", Entry{Value: []byte("v"), AddedAt: time.Now(), TTL: time.Minute})
	require.Error(t, err)

	// healthy tiers must still have taken the write
	_, ok, _ := fast.Get(ctx, "k")
	require.True(t, ok)
}

func TestChained_DeleteFansOut(t *testing.T) {
	fast := NewMemory(MemoryConfig{})
	slow := NewMemory(MemoryConfig{})
	chained := NewChained(wplog.NopLogger(), fast, slow)
	ctx := context.Background()

	entry := Entry{Value: []byte("v"), AddedAt: time.Now(), TTL: time.Minute}
	require.NoError(t, chained.Store(ctx, "k", entry))
	require.NoError(t, chained.Delete(ctx, "k"))

	_, ok, _ := fast.Get(ctx, "k")
	require.False(t, ok)
	_, ok, _ = slow.Get(ctx, "k")
	require.False(t, ok)
}
