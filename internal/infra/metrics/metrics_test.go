package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatherNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestTaskCounters(t *testing.T) {
	TasksActive.Set(2)
	TasksCompleted.Inc()
	TasksFailed.WithLabelValues("transient").Inc()
	TasksCleaned.Add(3)

	names := gatherNames(t)
	expected := []string{
		"quoteflow_tasks_active",
		"quoteflow_tasks_completed_total",
		"quoteflow_tasks_failed_total",
		"quoteflow_tasks_cleaned_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestWorkflowMetrics(t *testing.T) {
	WorkflowDuration.Observe(12.5)
	RetryAttempts.Inc()
	CRMCalls.WithLabelValues("res.partner", "search_read").Inc()
	CRMCalls.WithLabelValues("sale.order", "create").Inc()

	names := gatherNames(t)
	expected := []string{
		"quoteflow_workflow_duration_seconds",
		"quoteflow_retry_attempts_total",
		"quoteflow_crm_calls_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestNotificationMetrics(t *testing.T) {
	NotificationsSent.WithLabelValues("sent").Inc()
	NotificationsSent.WithLabelValues("skipped").Inc()

	if !gatherNames(t)["quoteflow_notifications_total"] {
		t.Error("quoteflow_notifications_total not found")
	}
}

func TestHealthMetrics(t *testing.T) {
	HealthCheckStatus.WithLabelValues("sqlite").Set(1)
	HealthCheckStatus.WithLabelValues("crm").Set(0)

	if !gatherNames(t)["quoteflow_health_check_status"] {
		t.Error("quoteflow_health_check_status not found")
	}
}

func TestAllMetricsGatherable(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	count := 0
	for _, f := range families {
		if len(f.GetName()) > 10 && f.GetName()[:10] == "quoteflow_" {
			count++
		}
	}
	if count < 9 {
		t.Errorf("expected at least 9 quoteflow_ metric families, got %d", count)
	}
}
