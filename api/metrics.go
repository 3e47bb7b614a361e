/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Counters and timings for the reconciliation hot path, exposed on
  /metrics. Outcome and category labels make the commission mix and the
  rejection rate visible on a dashboard without log scraping.
*/
package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "reconcile_total",
		Help:      "Reconciliation calls by outcome and commission category.",
	}, []string{"outcome", "category"})

	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "settlement",
		Name:      "reconcile_duration_seconds",
		Help:      "Wall time of one reconciliation call.",
		Buckets:   prometheus.DefBuckets,
	})

	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "completions_total",
		Help:      "Settlements reaching their amount, by closure mode.",
	}, []string{"mode"}) // immediate | pending_clearance

	plansCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "plans_created_total",
		Help:      "Settlement plans created.",
	})
)

func observeReconcile(outcome, category string, start time.Time) {
	reconcileTotal.WithLabelValues(outcome, category).Inc()
	reconcileDuration.Observe(time.Since(start).Seconds())
}
