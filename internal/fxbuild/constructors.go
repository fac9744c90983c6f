// Package fxbuild assembles the application graph: configuration, logging,
// storage tiers, the executor, the engine and the HTTP servers, plus every
// constructor user code registered through the registrar.
package fxbuild

import (
	"context"
	"log/slog"

	"github.com/pitkley/watchpost/internal/cache"
	"github.com/pitkley/watchpost/internal/configuration"
	"github.com/pitkley/watchpost/internal/engine"
	"github.com/pitkley/watchpost/internal/executor"
	"github.com/pitkley/watchpost/internal/fxutil"
	"github.com/pitkley/watchpost/internal/metricsrv"
	"github.com/pitkley/watchpost/internal/registrar"
	"github.com/pitkley/watchpost/internal/storage"
	"github.com/pitkley/watchpost/internal/watchsrv"
	"github.com/pitkley/watchpost/pkg/common/wplog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

func NewLogger(c wplog.Config) (*slog.Logger, error) {
	return wplog.Build(c)
}

// NewTracerProvider installs a tracer provider without an exporter: spans
// are never shipped anywhere, but their ids flow into the logs through
// otelslog. Deployments that want real traces decorate this constructor.
func NewTracerProvider(lc fx.Lifecycle) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "watchpost"),
		)),
	)
	otel.SetTracerProvider(tp)

	lc.Append(fx.StopHook(func(ctx context.Context) error {
		return tp.Shutdown(ctx)
	}))

	return tp
}

type StoreIn struct {
	fx.In

	Logger *slog.Logger
	Cache  configuration.Cache
	Redis  *redis.Client
}

// NewStore assembles the cache tiers: memory in front, then disk, then
// redis, each configured tier consulted on misses of the previous one.
func NewStore(in StoreIn) (*storage.Chained, error) {
	tiers := []storage.Store{storage.NewMemory(in.Cache.Memory)}

	if in.Cache.Disk != nil {
		disk, err := storage.NewDisk(*in.Cache.Disk, in.Logger)
		if err != nil {
			return nil, errors.Wrap(err, "cannot open the disk cache tier")
		}
		tiers = append(tiers, disk)
	}

	if in.Cache.Redis != nil {
		tiers = append(tiers, storage.NewRedis(in.Redis))
	}

	return storage.NewChained(in.Logger, tiers...), nil
}

func GetConstructors() []any {
	return append(
		registrar.GetRegistered(),
		configuration.Read,
		NewLogger,
		NewTracerProvider,
		NewRedisClient,
		fxutil.AsIface[storage.Store](NewStore),
		cache.New,
		executor.NewFX,
		engine.NewFX,
		watchsrv.NewFX,
		metricsrv.NewFX,
	)
}
