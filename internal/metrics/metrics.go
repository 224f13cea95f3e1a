// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationsTotal counts occurrences by outcome: created, skipped, failed.
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propcheck_generations_total",
		Help: "Occurrences processed by the generator, by outcome",
	}, []string{"outcome"})

	// ReclaimsTotal counts stale pending reservations taken over.
	ReclaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propcheck_generation_reclaims_total",
		Help: "Stale pending reservations reclaimed",
	})

	// CycleDuration tracks scheduler cycle latency.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "propcheck_cycle_duration_seconds",
		Help:    "Generation cycle duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	})

	// CycleErrorsTotal counts cycles aborted before processing schedules.
	CycleErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propcheck_cycle_errors_total",
		Help: "Generation cycles aborted by a storage failure",
	})

	// TransitionsTotal counts checklist status changes.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propcheck_checklist_transitions_total",
		Help: "Checklist status changes by source and target status",
	}, []string{"from", "to"})

	// ConflictRetriesTotal counts optimistic-lock retries by operation.
	ConflictRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propcheck_conflict_retries_total",
		Help: "Writes retried after a concurrent modification",
	}, []string{"operation"})

	// NotificationsDroppedTotal counts events dropped by a full notifier queue.
	NotificationsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propcheck_notifications_dropped_total",
		Help: "Domain events dropped because the notifier queue was full",
	})
)
