package wplog

import (
	"context"
	"log/slog"
)

type attrsKey struct{}

// ContextWith returns a context carrying the given attrs. Every record logged
// through a wplog-built logger with that context gets the attrs appended.
func ContextWith(ctx context.Context, attrs ...slog.Attr) context.Context {
	oldAttrs := getAttrs(ctx)

	newAttrs := make([]slog.Attr, 0, len(oldAttrs)+len(attrs))
	newAttrs = append(newAttrs, oldAttrs...)
	newAttrs = append(newAttrs, attrs...)

	return context.WithValue(ctx, attrsKey{}, newAttrs)
}

func getAttrs(ctx context.Context) []slog.Attr {
	currentAttrs := ctx.Value(attrsKey{})
	if currentAttrs == nil {
		return nil
	}

	// cannot panic, only ContextWith stores under attrsKey
	return currentAttrs.([]slog.Attr)
}

// GetLogger materializes the context attrs onto the given logger. Useful for
// loggers that are handed around as struct fields rather than built per call.
func GetLogger(ctx context.Context, l *slog.Logger) *slog.Logger {
	attrs := getAttrs(ctx)
	if len(attrs) == 0 {
		return l
	}

	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}

	return l.With(args...)
}
