// Package metrics provides Prometheus metrics for QuoteFlow: task
// dispatch, retries, workflow duration, CRM calls, and notification
// delivery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TasksActive tracks currently executing quotation tasks.
var TasksActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "quoteflow",
	Name:      "tasks_active",
	Help:      "Number of currently executing quotation tasks.",
})

// TasksCompleted tracks completed tasks.
var TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quoteflow",
	Name:      "tasks_completed_total",
	Help:      "Total completed quotation tasks.",
})

// TasksFailed tracks failed tasks by reason.
var TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quoteflow",
	Name:      "tasks_failed_total",
	Help:      "Total failed quotation tasks.",
}, []string{"reason"})

// TasksCleaned tracks terminal records removed by the cleanup sweep.
var TasksCleaned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quoteflow",
	Name:      "tasks_cleaned_total",
	Help:      "Total terminal task records removed by cleanup.",
})

// ─── Workflow ───────────────────────────────────────────────────────────────

// WorkflowDuration tracks end-to-end quotation workflow duration.
var WorkflowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "quoteflow",
	Name:      "workflow_duration_seconds",
	Help:      "End-to-end quotation workflow duration in seconds.",
	Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
})

// RetryAttempts tracks retried operations.
var RetryAttempts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quoteflow",
	Name:      "retry_attempts_total",
	Help:      "Total transient-failure retries.",
})

// CRMCalls tracks XML-RPC calls by model and method.
var CRMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quoteflow",
	Name:      "crm_calls_total",
	Help:      "Total CRM XML-RPC calls.",
}, []string{"model", "method"})

// ─── Notifications ──────────────────────────────────────────────────────────

// NotificationsSent tracks notification outcomes (sent, failed, skipped).
var NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quoteflow",
	Name:      "notifications_total",
	Help:      "Total notification attempts by outcome.",
}, []string{"status"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "quoteflow",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
