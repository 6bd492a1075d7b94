package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tiktok_crawler"

var (
	// CorrelationMisses counts like-pass records that found no play-pass partner.
	CorrelationMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "correlation_misses_total",
		Help:      "Light records emitted without a play count because no fingerprint matched.",
	})

	CorrelationMatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "correlation_matches_total",
		Help:      "Light records whose play count was joined by thumbnail fingerprint.",
	})

	TargetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "targets_total",
		Help:      "Target accounts processed, by outcome.",
	}, []string{"outcome"})

	RecordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_written_total",
		Help:      "Video records upserted, by pass.",
	}, []string{"pass"})

	ExtractionMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_misses_total",
		Help:      "Per-record extraction misses that were skipped.",
	}, []string{"pass"})

	TargetDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "target_duration_seconds",
		Help:      "Wall time spent on one target account.",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	})
)
