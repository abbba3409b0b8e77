// Package metrics provides Prometheus metrics for Stride: task completions,
// XP and level progression, HTTP traffic and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Completions ────────────────────────────────────────────────────────────

// CompletionsTotal counts successful task completions by priority.
var CompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stride",
	Name:      "completions_total",
	Help:      "Total successful task completions.",
}, []string{"priority"})

// CompletionRejections counts completions that did not apply, by reason
// (already_completed, not_found, conflict, lock, error).
var CompletionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stride",
	Name:      "completion_rejections_total",
	Help:      "Total rejected or failed task completions.",
}, []string{"reason"})

// CompletionLatency tracks end-to-end completion duration in seconds,
// lock wait included.
var CompletionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "stride",
	Name:      "completion_latency_seconds",
	Help:      "Task completion duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
})

// ─── Progression ────────────────────────────────────────────────────────────

// XPAwarded tracks total XP granted.
var XPAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "stride",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded across all users.",
})

// LevelUps counts completions that raised a user's level.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "stride",
	Name:      "level_ups_total",
	Help:      "Total completions that resulted in a level-up.",
})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts API requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stride",
	Name:      "http_requests_total",
	Help:      "Total HTTP requests by route and status.",
}, []string{"route", "code"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "stride",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stride",
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
