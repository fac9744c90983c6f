package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pitkley/watchpost/pkg/common/wplog"
)

func TestDisk_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(DiskConfig{Dir: dir}, wplog.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	entry := Entry{Value: []byte(`{"state":0}`), AddedAt: time.Now().Truncate(time.Second), TTL: 5 * time.Minute}
	require.NoError(t, d.Store(ctx, "check::prod", entry))

	got, ok, err := d.Get(ctx, "check::prod")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.Value, got.Value)
	require.Equal(t, entry.TTL, got.TTL)
	require.True(t, entry.AddedAt.Equal(got.AddedAt))
}

func TestDisk_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	d1, err := NewDisk(DiskConfig{Dir: dir}, wplog.NopLogger())
	require.NoError(t, err)
	require.NoError(t, d1.Store(ctx, "k", Entry{Value: []byte("v"), AddedAt: time.Now(), TTL: time.Minute}))

	d2, err := NewDisk(DiskConfig{Dir: dir}, wplog.NopLogger())
	require.NoError(t, err)

	got, ok, err := d2.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got.Value)
}

func TestDisk_Miss(t *testing.T) {
	d, err := NewDisk(DiskConfig{Dir: t.TempDir()}, wplog.NopLogger())
	require.NoError(t, err)

	_, ok, err := d.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDisk_DeleteIsIdempotent(t *testing.T) {
	d, err := NewDisk(DiskConfig{Dir: t.TempDir()}, wplog.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.Store(ctx, "k", Entry{Value: []byte("v"), AddedAt: time.Now(), TTL: time.Minute}))
	require.NoError(t, d.Delete(ctx, "k"))
	require.NoError(t, d.Delete(ctx, "k"))

	_, ok, err := d.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDisk_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(DiskConfig{Dir: dir}, wplog.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.Store(ctx, "k", Entry{Value: []byte("v"), AddedAt: time.Now(), TTL: time.Minute}))

	entries, err := os.ReadDir(filepath.Join(dir, "v1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1", entries[0].Name()), []byte("not json"), 0o644))

	_, _, err = d.Get(ctx, "k")
	require.Error(t, err)
}

func TestDisk_RequiresDir(t *testing.T) {
	_, err := NewDisk(DiskConfig{}, wplog.NopLogger())
	require.Error(t, err)
}
