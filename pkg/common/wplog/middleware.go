package wplog

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

func InjectRequestIDToLogContext() func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			rID := middleware.GetReqID(ctx)
			lgCtx := ContextWith(ctx, slog.String("request_id", rID))

			h.ServeHTTP(w, r.WithContext(lgCtx))
		})
	}
}

func LogRequests(l *slog.Logger) func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			h.ServeHTTP(ww, r)

			GetLogger(r.Context(), l).
				With(
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Duration("duration", time.Since(start)),
				).
				Info("handled request")
		})
	}
}
