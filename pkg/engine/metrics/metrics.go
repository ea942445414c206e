//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package metrics exposes Prometheus instrumentation for the permission
// engine.
//
// Metrics are registered against an explicit [prometheus.Registerer]
// supplied by the embedding application, never against the package
// global registry, so that multiple engine instances can coexist in one
// process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.  A nil *Metrics is
// valid and turns every observation into a no-op.
type Metrics struct {
	decisions     *prometheus.CounterVec
	denied        prometheus.Counter
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	duration      prometheus.Histogram
	auditDropped  prometheus.Counter
	invalidations *prometheus.CounterVec
}

// New creates the engine's collectors and registers them with reg.
// Registration failures panic via MustRegister; callers that need
// multiple engines on one registry should wrap reg with
// [prometheus.WrapRegistererWithPrefix].
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "permengine",
			Name:      "decisions_total",
			Help:      "Authorization decisions by effect and reason.",
		}, []string{"effect", "reason"}),
		denied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "permengine",
			Name:      "denied_total",
			Help:      "Total denied authorization decisions.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "permengine",
			Name:      "cache_hits_total",
			Help:      "Decisions served from the decision cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "permengine",
			Name:      "cache_misses_total",
			Help:      "Decisions that required full evaluation.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "permengine",
			Name:      "decision_duration_seconds",
			Help:      "Latency of authorization decisions.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "permengine",
			Name:      "audit_dropped_total",
			Help:      "Audit records dropped due to a full buffer.",
		}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "permengine",
			Name:      "cache_invalidations_total",
			Help:      "Decision cache invalidations by scope.",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		m.decisions,
		m.denied,
		m.cacheHits,
		m.cacheMisses,
		m.duration,
		m.auditDropped,
		m.invalidations,
	)

	return m
}

// ObserveDecision records the outcome and latency of one authorization.
func (m *Metrics) ObserveDecision(effect, reason string, cacheHit bool, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.decisions.WithLabelValues(effect, reason).Inc()
	if effect == "deny" {
		m.denied.Inc()
	}
	if cacheHit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
	m.duration.Observe(elapsed.Seconds())
}

// ObserveAuditDrop records a dropped audit record.
func (m *Metrics) ObserveAuditDrop() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// ObserveInvalidation records a cache invalidation with the given scope
// ("user", "group", or "all").
func (m *Metrics) ObserveInvalidation(scope string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(scope).Inc()
}
