package watchcheck

import "github.com/pkg/errors"

// ErrInvalidConfiguration marks registration-time problems: unknown
// datasource types, impossible strategy combinations, malformed durations.
// The engine aggregates every such error and refuses to start.
var ErrInvalidConfiguration = errors.New("invalid check configuration")

// UnavailableErr signals that a datasource could not reach its external
// system. The owning check surfaces as UNKNOWN; a cached value is
// deliberately not substituted, the grace read already covers that window.
type UnavailableErr struct {
	Inner error
}

// DatasourceUnavailable wraps a transport error raised inside a datasource.
func DatasourceUnavailable(err error) error {
	return &UnavailableErr{Inner: err}
}

func (e *UnavailableErr) Error() string {
	return "datasource unavailable: " + e.Inner.Error()
}

func (e *UnavailableErr) Unwrap() error { return e.Inner }
