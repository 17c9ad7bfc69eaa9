package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_runs_total",
			Help: "Total number of report pipeline runs by outcome",
		},
		[]string{"status"},
	)

	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_step_duration_seconds",
			Help:    "Duration of report pipeline steps in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"step", "status"},
	)

	llmTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_llm_tokens_total",
			Help: "Total number of LLM tokens consumed",
		},
		[]string{"provider", "direction"},
	)

	recorderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_recorder_errors_total",
			Help: "Total number of failed post-run recorder calls",
		},
		[]string{"recorder"},
	)
)

func recordTokens(provider string, in, out int64) {
	llmTokens.WithLabelValues(provider, "input").Add(float64(in))
	llmTokens.WithLabelValues(provider, "output").Add(float64(out))
}
