package serve

import (
	"context"
	"log/slog"

	"github.com/pitkley/watchpost/internal/cmdutil"
	"github.com/pitkley/watchpost/internal/fxbuild"
	"github.com/pitkley/watchpost/internal/fxutil"
	"github.com/pitkley/watchpost/internal/metricsrv"
	"github.com/pitkley/watchpost/internal/watchsrv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "runs watchpost as a service, exposing the piggyback feed over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		constructors := fxbuild.GetConstructors()

		var e struct {
			fx.In

			Logger *slog.Logger
		}

		fxOpts := []fx.Option{
			fx.Provide(constructors...),

			fx.Populate(&e),

			fx.Invoke(
				fxutil.Need[*watchsrv.Server],
				fxutil.Need[*metricsrv.Server],
				fxutil.Need[*sdktrace.TracerProvider],
			),

			fx.WithLogger(func(l *slog.Logger) fxevent.Logger {
				return &fxevent.SlogLogger{Logger: l}
			}),
		}
		fxOpts = append(fxOpts, cmdutil.ExtractFxOpts(ctx)...)

		app := fx.New(fxOpts...)

		if err := app.Start(ctx); err != nil {
			return errors.Wrap(err, "cannot start the application")
		}

		l := e.Logger

		select {
		case <-ctx.Done():
			l.Info("got shutdown signal")
		case stopSignal := <-app.Wait():
			l.Info("application ended its work", slog.String("message", stopSignal.String()))
		}

		tCtx, tCancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer tCancel()

		if err := app.Stop(tCtx); err != nil {
			return errors.Wrap(err, "cannot gracefully stop the application")
		}

		l.Info("application shut down successfully")
		return nil
	},
}
