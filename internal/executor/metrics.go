package executor

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

type executorMetrics struct {
	SubmittedSync    *metrics.Counter
	SubmittedAsync   *metrics.Counter
	Deduplicated     *metrics.Counter
	Saturated        *metrics.Counter
	RejectedShutdown *metrics.Counter
	RunDuration      *metrics.Histogram
}

func newExecutorMetrics() *executorMetrics {
	submitted := func(mode Mode) *metrics.Counter {
		return metrics.GetOrCreateCounter(
			fmt.Sprintf(`watchpost_executor_submitted_total{mode=%q}`, mode))
	}

	return &executorMetrics{
		SubmittedSync:    submitted(ModeSync),
		SubmittedAsync:   submitted(ModeAsync),
		Deduplicated:     metrics.GetOrCreateCounter(`watchpost_executor_deduplicated_total`),
		Saturated:        metrics.GetOrCreateCounter(`watchpost_executor_saturated_total`),
		RejectedShutdown: metrics.GetOrCreateCounter(`watchpost_executor_rejected_shutdown_total`),
		RunDuration:      metrics.GetOrCreateHistogram(`watchpost_executor_run_duration`),
	}
}
