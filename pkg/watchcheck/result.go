package watchcheck

import (
	"fmt"
	"sort"
	"strings"
)

// Result is what a check function reports about one service.
type Result struct {
	State   State
	Summary string

	// Details may be a string, a map[string]string (rendered as sorted
	// "key: value" lines) or an error (rendered with %+v, which unfolds
	// the stack of github.com/pkg/errors values).
	Details any

	// NameSuffix is appended to the service name of the owning check,
	// letting one check report several services.
	NameSuffix string

	// HostnameOverride routes this single result to the given piggyback
	// host instead of walking the usual resolution hierarchy.
	HostnameOverride string

	Metrics []Metric
}

// DetailsText renders result details into the textual form emitted to the
// agent.
func DetailsText(details any) string {
	switch d := details.(type) {
	case nil:
		return ""
	case string:
		return d
	case map[string]string:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s: %s", k, d[k]))
		}
		return strings.Join(lines, "\n")
	case error:
		return fmt.Sprintf("%+v", d)
	default:
		return fmt.Sprint(d)
	}
}

// ExecutionResult is a fully resolved result: service name and piggyback
// host are final, details are flattened to text. This is the engine's unit
// of emission and the cache payload.
type ExecutionResult struct {
	PiggybackHost   string            `json:"piggyback_host"`
	ServiceName     string            `json:"service_name"`
	ServiceLabels   map[string]string `json:"service_labels,omitempty"`
	EnvironmentName string            `json:"environment_name"`
	State           State             `json:"state"`
	Summary         string            `json:"summary"`
	Details         string            `json:"details,omitempty"`
	Metrics         []Metric          `json:"metrics,omitempty"`

	// Check is the descriptor this result originated from. It is not part
	// of the serialized form; the engine re-attaches it when results come
	// back from the cache.
	Check *Check `json:"-"`
}
