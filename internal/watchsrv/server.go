// Package watchsrv serves the check results over HTTP: the piggyback feed
// polled by the monitoring agent plus a few JSON diagnostics routes.
package watchsrv

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pitkley/watchpost/internal/engine"
	"github.com/pitkley/watchpost/internal/render"
	"github.com/pitkley/watchpost/internal/util"
	"github.com/pitkley/watchpost/pkg/common/wplog"
	"github.com/pitkley/watchpost/pkg/ratelimit"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type Config struct {
	Port uint64 `json:"port" yaml:"port"`

	// PollRate throttles the feed route. The zero value leaves it
	// unthrottled.
	PollRate ratelimit.Spec `json:"poll_rate" yaml:"poll_rate"`
}

type ServerIn struct {
	fx.In

	Logger *slog.Logger
	Config Config
	Engine *engine.Engine
}

type Server struct {
	l       *slog.Logger
	srv     *http.Server
	eng     *engine.Engine
	limiter *ratelimit.Limiter

	polls        *metrics.Counter
	pollFailures *metrics.Counter
}

func New(in ServerIn) *Server {
	l := in.Logger.With(wplog.Component("watchsrv"))

	s := &Server{
		l:       l,
		eng:     in.Engine,
		limiter: ratelimit.New(in.Config.PollRate, ratelimit.WithLogger(l)),

		polls:        metrics.GetOrCreateCounter("watchpost_feed_polls_total"),
		pollFailures: metrics.GetOrCreateCounter("watchpost_feed_poll_failures_total"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(wplog.InjectRequestIDToLogContext())
	r.Use(wplog.LogRequests(l))

	r.Get("/", s.handleFeed)
	r.Get("/healthcheck", s.handleHealthcheck)
	r.Get("/executor/statistics", s.handleExecutorStatistics)
	r.Get("/executor/errored", s.handleExecutorErrored)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", in.Config.Port),
		Handler: r,
	}

	return s
}

func NewFX(in ServerIn, lc fx.Lifecycle) *Server {
	s := New(in)
	lc.Append(fx.StartStopHook(
		func() {
			s.l.Info("feed server is listening", slog.String("addr", s.srv.Addr))
			go func() {
				if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.l.Error("feed server terminated", wplog.Error(err))
				}
			}()
		},
		func(ctx context.Context) error {
			return s.srv.Shutdown(ctx)
		},
	))

	return s
}

// handleFeed runs one poll over every registered check and streams the
// rendered piggyback sections. A disconnecting client cancels the await,
// the check bodies themselves keep running in the executor.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.limiter.Acquire(ctx); err != nil {
		http.Error(w, "poll aborted while throttled", http.StatusServiceUnavailable)
		return
	}

	s.polls.Inc()

	results, err := s.eng.Collect(ctx)
	if err != nil {
		s.pollFailures.Inc()
		s.l.ErrorContext(ctx, "poll failed", wplog.Error(err))
		http.Error(w, "poll failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := render.Piggyback(w, results); err != nil {
		// status is already committed, nothing left to do but log
		s.l.WarnContext(ctx, "feed write aborted", wplog.Error(err))
	}
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExecutorStatistics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, s.eng.ExecutorStatistics())
}

func (s *Server) handleExecutorErrored(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, s.eng.ExecutorErrored())
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, obj any) {
	w.Header().Set("Content-Type", "application/json")
	if err := util.WriteJsonTo(obj, w); err != nil {
		s.l.WarnContext(r.Context(), "response write aborted", wplog.Error(err))
	}
}
