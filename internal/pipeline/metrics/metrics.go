// Package metrics exposes Prometheus instrumentation for the
// categorization pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ServiceCallsTotal tracks classification service invocations by outcome.
	ServiceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorize_service_calls_total",
			Help: "Total number of classification service calls",
		},
		[]string{"outcome"},
	)

	// ServiceRetriesTotal tracks retry attempts after throttling errors.
	ServiceRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "categorize_service_retries_total",
			Help: "Total number of classification retries after throttling",
		},
	)

	// FallbackTotal tracks rows that resolved to the fallback category.
	FallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorize_fallback_total",
			Help: "Total number of rows resolved to the fallback category",
		},
		[]string{"stage"},
	)

	// RowsProcessed tracks rows completed per pipeline stage.
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorize_rows_processed_total",
			Help: "Total number of rows processed",
		},
		[]string{"stage"},
	)

	// ServiceLatency tracks classification call latency.
	ServiceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "categorize_service_latency_seconds",
			Help:    "Classification service call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CategoryDistribution reports the label frequency distribution of the
	// most recent run, per stage.
	CategoryDistribution = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "categorize_category_distribution",
			Help: "Label frequency distribution of the current run",
		},
		[]string{"stage", "category"},
	)

	// CheckpointSavesTotal tracks periodic checkpoint writes.
	CheckpointSavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "categorize_checkpoint_saves_total",
			Help: "Total number of checkpoint saves",
		},
	)
)
