package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/pitkley/watchpost/internal/storage"
	"github.com/pitkley/watchpost/pkg/common/wplog"
)

type failingStore struct {
	err error
}

func (f *failingStore) Get(context.Context, string) (storage.Entry, bool, error) {
	return storage.Entry{}, false, f.err
}

func (f *failingStore) Store(context.Context, string, storage.Entry) error { return f.err }

func (f *failingStore) Delete(context.Context, string) error { return f.err }

func TestCache_Roundtrip(t *testing.T) {
	c := New(storage.NewMemory(storage.MemoryConfig{}), wplog.NopLogger())
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "k", []byte("v"), time.Minute))

	entry, ok := c.Get(ctx, "k", false)
	require.True(t, ok)
	require.Equal(t, []byte("v"), entry.Value)
	require.Equal(t, time.Minute, entry.TTL)
	require.False(t, entry.AddedAt.IsZero())
}

func TestCache_Miss(t *testing.T) {
	c := New(storage.NewMemory(storage.MemoryConfig{}), wplog.NopLogger())

	_, ok := c.Get(context.Background(), "absent", false)
	require.False(t, ok)
}

func TestCache_GraceReadReturnsExpiredOnce(t *testing.T) {
	store := storage.NewMemory(storage.MemoryConfig{})
	c := New(store, wplog.NopLogger())
	ctx := context.Background()

	expired := storage.Entry{Value: []byte("stale"), AddedAt: time.Now().Add(-time.Hour), TTL: time.Minute}
	require.NoError(t, store.Store(ctx, "k", expired))

	entry, ok := c.Get(ctx, "k", false)
	require.True(t, ok)
	require.Equal(t, []byte("stale"), entry.Value)

	_, ok = c.Get(ctx, "k", false)
	require.False(t, ok)
}

func TestCache_GraceReadExactlyOnceUnderConcurrency(t *testing.T) {
	store := storage.NewMemory(storage.MemoryConfig{})
	c := New(store, wplog.NopLogger())
	ctx := context.Background()

	expired := storage.Entry{Value: []byte("stale"), AddedAt: time.Now().Add(-time.Hour), TTL: time.Minute}
	require.NoError(t, store.Store(ctx, "k", expired))

	const readers = 32
	var hits atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := c.Get(ctx, "k", false); ok {
				hits.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int64(1), hits.Load())
}

func TestCache_AllowExpiredKeepsEntry(t *testing.T) {
	store := storage.NewMemory(storage.MemoryConfig{})
	c := New(store, wplog.NopLogger())
	ctx := context.Background()

	expired := storage.Entry{Value: []byte("stale"), AddedAt: time.Now().Add(-time.Hour), TTL: time.Minute}
	require.NoError(t, store.Store(ctx, "k", expired))

	for range 3 {
		entry, ok := c.Get(ctx, "k", true)
		require.True(t, ok)
		require.Equal(t, []byte("stale"), entry.Value)
	}
}

func TestCache_StorageErrorIsMiss(t *testing.T) {
	c := New(&failingStore{err: errors.New("backend down")}, wplog.NopLogger())

	_, ok := c.Get(context.Background(), "k", false)
	require.False(t, ok)
}

func TestCache_StoreSurfacesError(t *testing.T) {
	c := New(&failingStore{err: errors.New("backend down")}, wplog.NopLogger())

	err := c.Store(context.Background(), "k", []byte("v"), time.Minute)
	require.Error(t, err)
}

func TestMemoize_ComputesOnceWhileLive(t *testing.T) {
	c := New(storage.NewMemory(storage.MemoryConfig{}), wplog.NopLogger())

	var calls atomic.Int64
	fetch := Memoize(c, "answer:%s", time.Minute, func(ctx context.Context, q string) (int, error) {
		calls.Add(1)
		return len(q), nil
	})

	ctx := context.Background()
	for range 3 {
		v, err := fetch(ctx, "ping")
		require.NoError(t, err)
		require.Equal(t, 4, v)
	}
	require.Equal(t, int64(1), calls.Load())
}

func TestMemoize_DistinctArgsDistinctKeys(t *testing.T) {
	c := New(storage.NewMemory(storage.MemoryConfig{}), wplog.NopLogger())

	var calls atomic.Int64
	fetch := Memoize(c, "len:%s", time.Minute, func(ctx context.Context, q string) (int, error) {
		calls.Add(1)
		return len(q), nil
	})

	ctx := context.Background()
	a, err := fetch(ctx, "a")
	require.NoError(t, err)
	bb, err := fetch(ctx, "bb")
	require.NoError(t, err)

	require.Equal(t, 1, a)
	require.Equal(t, 2, bb)
	require.Equal(t, int64(2), calls.Load())
}

func TestMemoize_ErrorsAreNotCached(t *testing.T) {
	c := New(storage.NewMemory(storage.MemoryConfig{}), wplog.NopLogger())

	var calls atomic.Int64
	fetch := Memoize(c, "flaky:%s", time.Minute, func(ctx context.Context, q string) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("transient")
		}
		return "recovered", nil
	})

	ctx := context.Background()
	_, err := fetch(ctx, "x")
	require.Error(t, err)

	v, err := fetch(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "recovered", v)
	require.Equal(t, int64(2), calls.Load())
}

func TestMemoize_CollapsesConcurrentCalls(t *testing.T) {
	c := New(storage.NewMemory(storage.MemoryConfig{}), wplog.NopLogger())

	var calls atomic.Int64
	fetch := Memoize(c, "slow:%s", time.Minute, func(ctx context.Context, q string) (string, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "value", nil
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := fetch(ctx, "x")
			require.NoError(t, err)
			require.Equal(t, "value", v)
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int64(1), calls.Load())
}

func TestMemoize_ReturnExpiredServesStale(t *testing.T) {
	store := storage.NewMemory(storage.MemoryConfig{})
	c := New(store, wplog.NopLogger())

	var calls atomic.Int64
	fetch := Memoize(c, "catalog:%s", time.Minute, func(ctx context.Context, q string) (string, error) {
		calls.Add(1)
		return "endpoints", nil
	}, ReturnExpired())

	ctx := context.Background()
	_, err := fetch(ctx, "x")
	require.NoError(t, err)

	// entry is now past its TTL
	c.now = func() time.Time { return time.Now().Add(time.Hour) }

	for range 3 {
		v, err := fetch(ctx, "x")
		require.NoError(t, err)
		require.Equal(t, "endpoints", v)
	}
	require.Equal(t, int64(1), calls.Load())
}

func TestMemoize_ExpiredRecomputesAfterGraceRead(t *testing.T) {
	store := storage.NewMemory(storage.MemoryConfig{})
	c := New(store, wplog.NopLogger())

	var calls atomic.Int64
	fetch := Memoize(c, "fresh:%s", time.Minute, func(ctx context.Context, q string) (int64, error) {
		return calls.Add(1), nil
	})

	ctx := context.Background()
	v, err := fetch(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, int64(1), v)

	c.now = func() time.Time { return time.Now().Add(time.Hour) }

	// the grace read serves the stale value one more time
	v, err = fetch(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, int64(1), v)

	// after the grace read the entry is gone and the value is recomputed
	v, err = fetch(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, int64(2), v)
}
