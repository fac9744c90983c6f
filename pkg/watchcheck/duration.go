package watchcheck

import (
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var durationPattern = regexp.MustCompile(`^(\d+)(s|m|h|d)$`)

// ParseDuration parses the duration grammar used in check declarations: a
// positive integer followed by one of s, m, h or d. Anything else is
// rejected as a configuration error.
func ParseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Wrapf(ErrInvalidConfiguration, "invalid duration %q, expected <number><s|m|h|d>", s)
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfiguration, "invalid duration %q: %s", s, err)
	}

	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}

	return time.Duration(n) * unit, nil
}
