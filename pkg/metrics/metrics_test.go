package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOutboxMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOutboxMetrics(reg)
	metrics.ObserveBatch(250 * time.Millisecond)
	metrics.IncPublished("order_paid")
	metrics.IncFailed("order_paid")
	metrics.IncDeadLettered("order_paid", "max_attempts")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "outbox_published_total", "event_type", "order_paid"); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 1 {
		t.Fatalf("expected published=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_dead_lettered_total", "reason", "max_attempts"); err != nil {
		t.Fatalf("fetch dead lettered: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dead_lettered=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "outbox_batch_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected batch duration to be observed")
	}
}

func TestSettlementMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSettlementMetrics(reg)
	metrics.IncDeliverySyncFailure("DELIVERED")
	metrics.IncDeliverySyncFailure("DELIVERED")
	metrics.IncPayment("successful")
	metrics.ObserveGateway("verify", time.Now().Add(-time.Second))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "delivery_sync_failures_total", "status", "DELIVERED"); err != nil {
		t.Fatalf("fetch sync failures: %v", err)
	} else if got != 2 {
		t.Fatalf("expected sync failures=2, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "gateway_request_duration_seconds", "operation", "verify"); err != nil {
		t.Fatalf("fetch gateway duration: %v", err)
	} else if got < 1 {
		t.Fatalf("expected duration sum >= 1, got %f", got)
	}
}

func TestJobMetricsCountsRunsAndItems(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	metrics.IncSuccess("payment-reconcile")
	metrics.IncFailure("payment-reconcile")
	metrics.AddItems("payment-reconcile", "verified", 3)
	metrics.AddItems("payment-reconcile", "verified", 0)
	metrics.ObserveDuration("payment-reconcile", 2*time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "reconcile_job_items_total", "outcome", "verified"); err != nil {
		t.Fatalf("fetch items: %v", err)
	} else if got != 3 {
		t.Fatalf("expected items=3, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "reconcile_job_runs_total", "result", "failure"); err != nil {
		t.Fatalf("fetch runs: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failures=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "reconcile_job_duration_seconds", "job", "payment-reconcile"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 2 {
		t.Fatalf("expected duration sum 2, got %f", got)
	}
}

func TestNilRecordersAreNoops(t *testing.T) {
	var settlement *SettlementMetrics
	settlement.IncPayout("processed")
	settlement.ObserveGateway("transfer", time.Now())

	var jobs *JobMetrics
	jobs.AddItems("x", "y", 1)

	NewOutboxMetrics(nil).IncPublished("x")
	NewSettlementMetrics(nil).IncWebhook("charge.completed", "processed")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
