package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/pitkley/watchpost/pkg/common/wplog"
)

type memoizeOptions struct {
	returnExpired bool
}

type MemoizeOpt interface {
	apply(*memoizeOptions)
}

type memoizeOptFunc func(*memoizeOptions)

func (f memoizeOptFunc) apply(o *memoizeOptions) { f(o) }

// ReturnExpired makes the memoized function serve entries past their TTL
// instead of recomputing. Useful for values that are better stale than
// absent, like discovery endpoint catalogs.
func ReturnExpired() MemoizeOpt {
	return memoizeOptFunc(func(o *memoizeOptions) { o.returnExpired = true })
}

// Memoize wraps fn with a cached layer: the key is keyTemplate formatted
// with the call argument, values are stored as JSON for ttl. Concurrent
// calls for the same key are collapsed into a single computation.
func Memoize[A any, V any](c *Cache, keyTemplate string, ttl time.Duration, fn func(context.Context, A) (V, error), opts ...MemoizeOpt) func(context.Context, A) (V, error) {
	var o memoizeOptions
	for _, opt := range opts {
		opt.apply(&o)
	}

	var group singleflight.Group

	return func(ctx context.Context, arg A) (V, error) {
		var zero V
		key := fmt.Sprintf(keyTemplate, arg)

		if entry, ok := c.Get(ctx, key, o.returnExpired); ok {
			var val V
			if err := json.Unmarshal(entry.Value, &val); err == nil {
				return val, nil
			}
			c.l.WarnContext(ctx, "cannot decode memoized value, recomputing",
				slog.String("key", key))
		}

		computed, err, _ := group.Do(key, func() (any, error) {
			val, err := fn(ctx, arg)
			if err != nil {
				return nil, err
			}

			data, err := json.Marshal(val)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot encode memoized value for key %q", key)
			}
			if err := c.Store(ctx, key, data, ttl); err != nil {
				c.l.WarnContext(ctx, "cannot store memoized value", slog.String("key", key), wplog.Error(err))
			}

			return val, nil
		})
		if err != nil {
			return zero, err
		}

		return computed.(V), nil
	}
}
