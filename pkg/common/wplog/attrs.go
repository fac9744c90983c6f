package wplog

import (
	"fmt"
	"log/slog"
)

// Error renders an error for structured output. Errors wrapped with
// github.com/pkg/errors carry their stack, which %+v unfolds.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}

	return slog.String("error", fmt.Sprintf("%+v", err))
}

// Component tags a logger as belonging to an infrastructure component, which
// makes its records subject to the infra filter.
func Component(name string) slog.Attr {
	return slog.String("component", "infra:"+name)
}
