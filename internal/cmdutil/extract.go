package cmdutil

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/pitkley/watchpost/internal/engine"
	"github.com/pitkley/watchpost/internal/fxbuild"
)

type fxOptsKey struct{}

// InjectFxOpts stashes extra fx options on the context. Embedders and
// tests use it to decorate the graph the commands build.
func InjectFxOpts(ctx context.Context, opts []fx.Option) context.Context {
	return context.WithValue(ctx, fxOptsKey{}, opts)
}

func ExtractFxOpts(ctx context.Context) []fx.Option {
	opts, _ := ctx.Value(fxOptsKey{}).([]fx.Option)
	return opts
}

// ExtractEngine builds the application graph just far enough to
// materialize the engine. The HTTP servers are never constructed, so no
// ports are bound; the executor however is live, and callers must Stop the
// returned app once done to drain it.
func ExtractEngine(ctx context.Context, enableLogs bool, extra ...fx.Option) (*engine.Engine, *fx.App, error) {
	var withLogger fx.Option
	if !enableLogs {
		withLogger = fx.WithLogger(func() fxevent.Logger {
			return &fxevent.NopLogger
		})
	} else {
		withLogger = fx.WithLogger(func(l *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: l}
		})
	}

	var out struct {
		fx.In

		Engine *engine.Engine
	}

	fxOpts := []fx.Option{
		fx.Provide(
			fxbuild.GetConstructors()...,
		),
		withLogger,
		fx.Populate(&out),
	}
	fxOpts = append(fxOpts, ExtractFxOpts(ctx)...)
	fxOpts = append(fxOpts, extra...)

	app := fx.New(fxOpts...)
	if err := app.Start(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "cannot build the app to extract the engine")
	}

	return out.Engine, app, nil
}

// StopApp stops a one-shot app within its stop timeout. Stop errors are
// swallowed: by this point the command has already produced its output.
func StopApp(app *fx.App) {
	ctx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()

	_ = app.Stop(ctx)
}
