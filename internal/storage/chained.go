package storage

import (
	"context"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/pitkley/watchpost/pkg/common/wplog"
)

// Chained composes storage tiers ordered fastest first. Reads probe the
// tiers in order and back-fill earlier ones on a hit; writes and deletes
// fan out to every tier.
type Chained struct {
	tiers []Store
	l     *slog.Logger
}

func NewChained(l *slog.Logger, tiers ...Store) *Chained {
	if l == nil {
		l = wplog.NopLogger()
	}

	return &Chained{
		tiers: tiers,
		l:     l.With(wplog.Component("chained_storage")),
	}
}

// Get returns the entry from the first tier that has it. A failing tier is
// skipped, not fatal: a dead redis must not take the memory tier down with
// it. When every tier misses, the collected errors are returned alongside
// the miss.
func (c *Chained) Get(ctx context.Context, key string) (Entry, bool, error) {
	var merr *multierror.Error
	for i, tier := range c.tiers {
		entry, ok, err := tier.Get(ctx, key)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if !ok {
			continue
		}

		c.backFill(ctx, key, entry, i)

		return entry, true, nil
	}

	return Entry{}, false, merr.ErrorOrNil()
}

// backFill copies a hit into the tiers before the one that served it,
// best-effort.
func (c *Chained) backFill(ctx context.Context, key string, entry Entry, hitTier int) {
	for _, tier := range c.tiers[:hitTier] {
		if err := tier.Store(ctx, key, entry); err != nil {
			c.l.DebugContext(ctx, "cannot back-fill cache tier", wplog.Error(err))
		}
	}
}

func (c *Chained) Store(ctx context.Context, key string, entry Entry) error {
	var merr *multierror.Error
	for _, tier := range c.tiers {
		if err := tier.Store(ctx, key, entry); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	return merr.ErrorOrNil()
}

func (c *Chained) Delete(ctx context.Context, key string) error {
	var merr *multierror.Error
	for _, tier := range c.tiers {
		if err := tier.Delete(ctx, key); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	return merr.ErrorOrNil()
}
