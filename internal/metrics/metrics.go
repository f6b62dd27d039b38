package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dfrtlabs/loglens/internal/models"
)

const (
	// OutcomeSuccess labels runs in which every file was processed.
	OutcomeSuccess = "success"
	// OutcomePartial labels runs that completed with one or more failed files.
	OutcomePartial = "partial"
	// OutcomeError labels runs that were rejected or aborted.
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loglens",
			Name:      "analyses_total",
			Help:      "Total number of analysis runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "loglens",
			Name:      "analysis_seconds",
			Help:      "Analysis run latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	entriesParsedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loglens",
			Name:      "entries_parsed_total",
			Help:      "Log entries parsed across all runs.",
		},
	)

	threatsDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loglens",
			Name:      "threats_detected_total",
			Help:      "Threats raised across all runs, partitioned by threat type.",
		},
		[]string{"type"},
	)

	fileFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loglens",
			Name:      "file_failures_total",
			Help:      "Input files that could not be processed.",
		},
	)
)

// Register attaches loglens collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		entriesParsedTotal,
		threatsDetectedTotal,
		fileFailuresTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records a run's duration, outcome and, when result is non-nil, its volumes.
func ObserveAnalysis(duration time.Duration, result *models.AnalysisResult) string {
	outcome := Outcome(result)
	analysesTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
	if result == nil {
		return outcome
	}

	entriesParsedTotal.Add(float64(result.TotalEntriesParsed))
	fileFailuresTotal.Add(float64(len(result.FailedFiles)))
	for _, t := range result.Threats {
		threatsDetectedTotal.WithLabelValues(string(t.Type)).Inc()
	}
	return outcome
}

// Outcome classifies a run result; a nil result is an error.
func Outcome(result *models.AnalysisResult) string {
	switch {
	case result == nil || !result.Success:
		return OutcomeError
	case len(result.FailedFiles) > 0:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}
