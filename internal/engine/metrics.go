package engine

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

type checkMetrics struct {
	SuccessRuns *metrics.Counter
	FailedRuns  *metrics.Counter

	CacheHits   *metrics.Counter
	CacheMisses *metrics.Counter
	GraceReads  *metrics.Counter

	SuccessRunDuration *metrics.Histogram
	FailedRunDuration  *metrics.Histogram
}

// all checks are known at construction time, so per-check metrics are
// registered eagerly and the map stays read-only afterwards
func newCheckMetrics(checkID string) *checkMetrics {
	runs := `watchpost_check_runs_total{status=%q, check=%q}`
	durations := `watchpost_check_run_duration{status=%q, check=%q}`
	cacheEvents := `watchpost_check_cache_events_total{event=%q, check=%q}`

	return &checkMetrics{
		SuccessRuns: metrics.GetOrCreateCounter(fmt.Sprintf(runs, "success", checkID)),
		FailedRuns:  metrics.GetOrCreateCounter(fmt.Sprintf(runs, "fail", checkID)),

		CacheHits:   metrics.GetOrCreateCounter(fmt.Sprintf(cacheEvents, "hit", checkID)),
		CacheMisses: metrics.GetOrCreateCounter(fmt.Sprintf(cacheEvents, "miss", checkID)),
		GraceReads:  metrics.GetOrCreateCounter(fmt.Sprintf(cacheEvents, "grace_read", checkID)),

		SuccessRunDuration: metrics.GetOrCreateHistogram(fmt.Sprintf(durations, "success", checkID)),
		FailedRunDuration:  metrics.GetOrCreateHistogram(fmt.Sprintf(durations, "fail", checkID)),
	}
}
