// Package render writes engine output in the piggyback format the Checkmk
// agent forwards to its server. Results are grouped by piggyback host in
// first-seen order; each group carries one local-check line per result.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/pitkley/watchpost/pkg/watchcheck"
)

const localSectionHeader = "<<<local:sep(0)>>>\n"

// Piggyback writes results to w. Results carrying the NoPiggybackHost
// sentinel are emitted without the <<<<host>>>> framing and land on the host
// the agent itself runs on.
func Piggyback(w io.Writer, results []*watchcheck.ExecutionResult) error {
	hosts := make([]string, 0, len(results))
	grouped := make(map[string][]*watchcheck.ExecutionResult, len(results))
	for _, res := range results {
		if _, ok := grouped[res.PiggybackHost]; !ok {
			hosts = append(hosts, res.PiggybackHost)
		}
		grouped[res.PiggybackHost] = append(grouped[res.PiggybackHost], res)
	}

	for _, host := range hosts {
		if err := writeHost(w, host, grouped[host]); err != nil {
			return err
		}
	}
	return nil
}

func writeHost(w io.Writer, host string, results []*watchcheck.ExecutionResult) error {
	framed := host != watchcheck.NoPiggybackHost
	if framed {
		if _, err := fmt.Fprintf(w, "<<<<%s>>>>\n", host); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, localSectionHeader); err != nil {
		return err
	}

	for _, res := range results {
		line := fmt.Sprintf("%d \"%s\" %s %s\n", int(res.State), res.ServiceName, metricsField(res.Metrics), res.Summary)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
		if res.Details == "" {
			continue
		}
		details := res.Details
		if !strings.HasSuffix(details, "\n") {
			details += "\n"
		}
		if _, err := io.WriteString(w, details); err != nil {
			return err
		}
	}

	if framed {
		if _, err := io.WriteString(w, "<<<<>>>>\n"); err != nil {
			return err
		}
	}
	return nil
}

// metricsField renders the metrics slot of a local-check line: "-" when the
// result has no metrics, otherwise |-separated name=value;warn;crit;min;max
// entries with unset levels left as empty fields.
func metricsField(metrics []watchcheck.Metric) string {
	if len(metrics) == 0 {
		return "-"
	}

	return strings.Join(lo.Map(metrics, func(m watchcheck.Metric, _ int) string {
		return formatMetric(m)
	}), "|")
}

func formatMetric(m watchcheck.Metric) string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteByte('=')
	b.WriteString(formatFloat(m.Value))

	if m.Levels != nil || m.Boundaries != nil {
		b.WriteByte(';')
		if m.Levels != nil {
			b.WriteString(formatFloat(m.Levels.Warn))
		}
		b.WriteByte(';')
		if m.Levels != nil {
			b.WriteString(formatFloat(m.Levels.Crit))
		}
	}
	if m.Boundaries != nil {
		b.WriteByte(';')
		b.WriteString(formatFloat(m.Boundaries.Min))
		b.WriteByte(';')
		b.WriteString(formatFloat(m.Boundaries.Max))
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
