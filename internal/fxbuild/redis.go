package fxbuild

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/pitkley/watchpost/internal/configuration"
	"github.com/pitkley/watchpost/pkg/common/wplog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type redisLogHook struct {
	l *slog.Logger
}

func (h *redisLogHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network string, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.l.ErrorContext(
				ctx,
				"failed to dial with redis",
				slog.String("network", network),
				slog.String("addr", addr),
				wplog.Error(err),
			)
			return nil, err
		}

		h.l.InfoContext(
			ctx,
			"dialed with redis",
			slog.String("network", network),
			slog.String("addr", addr),
			slog.Duration("elapsed", time.Since(start)),
		)

		return conn, nil
	}
}

func (h *redisLogHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		if err != nil {
			h.l.DebugContext(
				ctx,
				"command in redis failed",
				slog.String("cmd", cmd.Name()),
				wplog.Error(err),
			)
			return err
		}

		h.l.DebugContext(
			ctx,
			"command in redis finished",
			slog.String("cmd", cmd.Name()),
			slog.Duration("elapsed", time.Since(start)),
		)

		return nil
	}
}

func (h *redisLogHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		if err != nil {
			h.l.DebugContext(
				ctx,
				"pipeline in redis failed",
				slog.Int("commands", len(cmds)),
				wplog.Error(err),
			)
			return err
		}

		h.l.DebugContext(
			ctx,
			"pipeline in redis finished",
			slog.Int("commands", len(cmds)),
			slog.Duration("elapsed", time.Since(start)),
		)

		return nil
	}
}

// NewRedisClient builds the client for the redis cache tier. Without a
// configured tier it returns nil and the store simply never sees one.
func NewRedisClient(c configuration.Cache, l *slog.Logger, lc fx.Lifecycle) *redis.Client {
	if c.Redis == nil {
		return nil
	}

	hook := &redisLogHook{l: l.With(wplog.Component("redis"))}
	client := redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr(),
		Username: c.Redis.Username,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
	client.AddHook(hook)

	lc.Append(fx.StartStopHook(
		func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return errors.Wrap(err, "cannot connect to redis")
			}

			return nil
		},
		func(ctx context.Context) {
			_ = client.Close()
		}))

	return client
}
