package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pitkley/watchpost/pkg/watchcheck"
)

func renderToString(t *testing.T, results []*watchcheck.ExecutionResult) string {
	t.Helper()

	var b strings.Builder
	require.NoError(t, Piggyback(&b, results))
	return b.String()
}

func TestPiggyback_SingleHost(t *testing.T) {
	out := renderToString(t, []*watchcheck.ExecutionResult{
		{
			PiggybackHost: "web-prod",
			ServiceName:   "HTTP Frontend",
			State:         watchcheck.StateOK,
			Summary:       "all good",
		},
	})

	require.Equal(t, "<<<<web-prod>>>>\n<<<local:sep(0)>>>\n0 \"HTTP Frontend\" - all good\n<<<<>>>>\n", out)
}

func TestPiggyback_DetailsFollowTheStatusLine(t *testing.T) {
	out := renderToString(t, []*watchcheck.ExecutionResult{
		{
			PiggybackHost: "web-prod",
			ServiceName:   "HTTP Frontend",
			State:         watchcheck.StateCrit,
			Summary:       "2 failures",
			Details:       "- login: timeout\n- search: 503",
		},
	})

	require.Equal(t, "<<<<web-prod>>>>\n<<<local:sep(0)>>>\n2 \"HTTP Frontend\" - 2 failures\n- login: timeout\n- search: 503\n<<<<>>>>\n", out)
}

func TestPiggyback_GroupsByHostInFirstSeenOrder(t *testing.T) {
	out := renderToString(t, []*watchcheck.ExecutionResult{
		{PiggybackHost: "beta", ServiceName: "A", State: watchcheck.StateOK, Summary: "a1"},
		{PiggybackHost: "alpha", ServiceName: "B", State: watchcheck.StateWarn, Summary: "b"},
		{PiggybackHost: "beta", ServiceName: "C", State: watchcheck.StateOK, Summary: "a2"},
	})

	expected := "<<<<beta>>>>\n" +
		"<<<local:sep(0)>>>\n" +
		"0 \"A\" - a1\n" +
		"0 \"C\" - a2\n" +
		"<<<<>>>>\n" +
		"<<<<alpha>>>>\n" +
		"<<<local:sep(0)>>>\n" +
		"1 \"B\" - b\n" +
		"<<<<>>>>\n"
	require.Equal(t, expected, out)
}

func TestPiggyback_NoPiggybackHostOmitsFraming(t *testing.T) {
	out := renderToString(t, []*watchcheck.ExecutionResult{
		{
			PiggybackHost: watchcheck.NoPiggybackHost,
			ServiceName:   "Self Check",
			State:         watchcheck.StateUnknown,
			Summary:       "no idea",
		},
	})

	require.Equal(t, "<<<local:sep(0)>>>\n3 \"Self Check\" - no idea\n", out)
}

func TestPiggyback_MetricsRendering(t *testing.T) {
	out := renderToString(t, []*watchcheck.ExecutionResult{
		{
			PiggybackHost: "db",
			ServiceName:   "Storage",
			State:         watchcheck.StateWarn,
			Summary:       "disk filling up",
			Metrics: []watchcheck.Metric{
				{Name: "used_percent", Value: 87.5, Levels: &watchcheck.Thresholds{Warn: 80, Crit: 95}},
				{Name: "inodes", Value: 1200},
			},
		},
	})

	require.Contains(t, out, "1 \"Storage\" used_percent=87.5;80;95|inodes=1200 disk filling up\n")
}

func TestPiggyback_MetricBoundariesWithoutLevels(t *testing.T) {
	field := metricsField([]watchcheck.Metric{
		{Name: "temp", Value: 21.5, Boundaries: &watchcheck.Boundaries{Min: 0, Max: 100}},
	})
	require.Equal(t, "temp=21.5;;;0;100", field)
}

func TestPiggyback_MetricLevelsAndBoundaries(t *testing.T) {
	field := metricsField([]watchcheck.Metric{
		{
			Name:       "latency",
			Value:      0.25,
			Levels:     &watchcheck.Thresholds{Warn: 0.5, Crit: 1},
			Boundaries: &watchcheck.Boundaries{Min: 0, Max: 5},
		},
	})
	require.Equal(t, "latency=0.25;0.5;1;0;5", field)
}

func TestPiggyback_EmptyInputWritesNothing(t *testing.T) {
	out := renderToString(t, nil)
	require.Equal(t, "", out)
}

func TestPiggyback_DetailsGetTrailingNewline(t *testing.T) {
	out := renderToString(t, []*watchcheck.ExecutionResult{
		{PiggybackHost: "h", ServiceName: "S", State: watchcheck.StateOK, Summary: "ok", Details: "no newline"},
		{PiggybackHost: "h", ServiceName: "T", State: watchcheck.StateOK, Summary: "ok"},
	})

	require.Contains(t, out, "no newline\n0 \"T\" - ok\n")
}
