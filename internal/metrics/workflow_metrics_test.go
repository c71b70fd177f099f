package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewWorkflowMetrics(t *testing.T) {
	m := NewWorkflowMetricsWithRegisterer(prometheus.NewRegistry())

	if m == nil {
		t.Fatal("NewWorkflowMetricsWithRegisterer should not return nil")
	}
	if m.ordersPlaced == nil {
		t.Error("ordersPlaced counter should not be nil")
	}
	if m.ordersCompleted == nil {
		t.Error("ordersCompleted counter should not be nil")
	}
	if m.ordersCancelled == nil {
		t.Error("ordersCancelled counter should not be nil")
	}
	if m.paymentsRefunded == nil {
		t.Error("paymentsRefunded counter should not be nil")
	}
	if m.workflowFailures == nil {
		t.Error("workflowFailures counter vec should not be nil")
	}
	if m.operationDuration == nil {
		t.Error("operationDuration histogram vec should not be nil")
	}
	if m.stockReserved == nil || m.stockRestored == nil {
		t.Error("stock counters should not be nil")
	}
	if m.timelineEvents == nil || m.outboxEvents == nil {
		t.Error("event counters should not be nil")
	}
}

func TestRecordOrderPlaced(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWorkflowMetricsWithRegisterer(registry)

	m.RecordOrderPlaced()
	m.RecordOrderPlaced()

	if got := counterValue(t, registry, "retail_orders_placed_total"); got != 2 {
		t.Fatalf("retail_orders_placed_total = %v, want 2", got)
	}
}

func TestRecordStockMovement(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWorkflowMetricsWithRegisterer(registry)

	m.RecordStockReserved(3)
	m.RecordStockRestored(3)

	if got := counterValue(t, registry, "retail_stock_reserved_units_total"); got != 3 {
		t.Fatalf("retail_stock_reserved_units_total = %v, want 3", got)
	}
	if got := counterValue(t, registry, "retail_stock_restored_units_total"); got != 3 {
		t.Fatalf("retail_stock_restored_units_total = %v, want 3", got)
	}
}

func TestRecordFailureByReason(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWorkflowMetricsWithRegisterer(registry)

	m.RecordFailure("insufficient_stock")
	m.RecordFailure("insufficient_stock")
	m.RecordFailure("invalid_state")

	families := gather(t, registry)
	family, ok := families["retail_workflow_failures_total"]
	if !ok {
		t.Fatal("retail_workflow_failures_total not found")
	}

	byReason := map[string]float64{}
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "reason" {
				byReason[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}

	if byReason["insufficient_stock"] != 2 {
		t.Fatalf("insufficient_stock = %v, want 2", byReason["insufficient_stock"])
	}
	if byReason["invalid_state"] != 1 {
		t.Fatalf("invalid_state = %v, want 1", byReason["invalid_state"])
	}
}

func TestRecordOperationDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWorkflowMetricsWithRegisterer(registry)

	m.RecordOperationDuration("create_order", 25*time.Millisecond)

	families := gather(t, registry)
	family, ok := families["retail_workflow_operation_duration_seconds"]
	if !ok {
		t.Fatal("retail_workflow_operation_duration_seconds not found")
	}
	if count := family.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
		t.Fatalf("sample count = %d, want 1", count)
	}
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()

	family, ok := gather(t, registry)[name]
	if !ok {
		t.Fatalf("metric %s not found", name)
	}
	return family.GetMetric()[0].GetCounter().GetValue()
}

func gather(t *testing.T, registry *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	result := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		result[family.GetName()] = family
	}
	return result
}
