package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/pitkley/watchpost/pkg/common/wplog"
)

// diskFormatVersion names the on-disk layout. Bump it when the envelope
// changes; old entries are then simply never found again.
const diskFormatVersion = "v1"

type DiskConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// Disk persists entries as one JSON file per key, so cached results
// survive process restarts.
type Disk struct {
	dir string
	l   *slog.Logger
}

// diskEnvelope is the file format. The original key is kept alongside the
// payload because the filename is only its hash.
type diskEnvelope struct {
	Key     string        `json:"key"`
	AddedAt time.Time     `json:"added_at"`
	TTL     time.Duration `json:"ttl"`
	Value   []byte        `json:"value"`
}

func NewDisk(c DiskConfig, l *slog.Logger) (*Disk, error) {
	if c.Dir == "" {
		return nil, errors.New("disk cache storage requires a directory")
	}
	if l == nil {
		l = wplog.NopLogger()
	}

	dir := filepath.Join(c.Dir, diskFormatVersion)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cannot create disk cache directory %q", dir)
	}

	return &Disk{
		dir: dir,
		l:   l.With(wplog.Component("disk_storage"), slog.String("dir", dir)),
	}, nil
}

func (d *Disk) Get(_ context.Context, key string) (Entry, bool, error) {
	data, err := os.ReadFile(d.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}

		return Entry{}, false, errors.Wrapf(err, "cannot read disk cache entry for key %q", key)
	}

	var envelope diskEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Entry{}, false, errors.Wrapf(err, "cannot decode disk cache entry for key %q", key)
	}

	return Entry{Value: envelope.Value, AddedAt: envelope.AddedAt, TTL: envelope.TTL}, true, nil
}

// Store writes to a temporary file in the target directory and renames it
// into place, so readers never observe a torn entry.
func (d *Disk) Store(_ context.Context, key string, entry Entry) error {
	data, err := json.Marshal(diskEnvelope{
		Key:     key,
		AddedAt: entry.AddedAt,
		TTL:     entry.TTL,
		Value:   entry.Value,
	})
	if err != nil {
		return errors.Wrapf(err, "cannot encode disk cache entry for key %q", key)
	}

	tmp, err := os.CreateTemp(d.dir, ".entry-*")
	if err != nil {
		return errors.Wrap(err, "cannot open temporary file to store entry atomically")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return errors.Wrap(err, "cannot write temporary cache entry")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(err, "cannot close temporary cache entry")
	}

	if err := os.Rename(tmp.Name(), d.pathFor(key)); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(err, "cannot move temporary file in place of the cache entry")
	}

	return nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	if err := os.Remove(d.pathFor(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "cannot delete disk cache entry for key %q", key)
	}

	return nil
}

// pathFor hashes the key: cache keys carry check ids and environment names,
// which are not safe as filenames.
func (d *Disk) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))

	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+".json")
}
