package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/service/workflow"
)

func TestNewMemoryDependencies(t *testing.T) {
	deps := NewMemoryDependencies(log.WithField("test", t.Name()))

	if deps.Customers == nil || deps.Products == nil || deps.Orders == nil ||
		deps.Payments == nil || deps.Workflow == nil || deps.Outbox == nil || deps.Timeline == nil {
		t.Fatal("all repositories must be initialized")
	}
	if err := deps.Ping(context.Background()); err != nil {
		t.Fatalf("memory ping must not fail: %v", err)
	}
	if err := deps.Close(); err != nil {
		t.Fatalf("memory close must not fail: %v", err)
	}
}

func TestNewDependencies_MemoryFallback(t *testing.T) {
	cfg := DefaultConfig()

	deps, err := NewDependencies(context.Background(), cfg, log.WithField("test", t.Name()))
	if err != nil {
		t.Fatalf("new dependencies: %v", err)
	}
	if deps.Customers == nil {
		t.Fatal("expected memory dependencies")
	}
}

// Смоук полного цикла через собранные зависимости:
// create -> pay поверх in-memory хранилища.
func TestDependencies_WorkflowSmoke(t *testing.T) {
	deps := NewMemoryDependencies(log.WithField("test", t.Name()))

	customer, err := deps.Customers.Create(domain.Customer{Name: "Smoke", Email: "smoke@example.com"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	product, err := deps.Products.Create(domain.Product{SKU: "SKU-SMOKE", Name: "Smoke", PriceMinor: 100, Stock: 3})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	engine := workflow.NewEngineWithoutMetrics(
		deps.Customers, deps.Products, deps.Orders, deps.Payments,
		deps.Workflow, deps.Outbox, deps.Timeline,
		deps.Logger,
	)

	conf, err := engine.CreateOrder(customer.ID, []workflow.ItemRequest{{ProductID: product.ID, Qty: 2}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	result, err := engine.PayOrder(conf.Order.ID, "cash")
	if err != nil {
		t.Fatalf("pay order: %v", err)
	}
	if result.Order.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", result.Order.Status)
	}

	got, err := deps.Products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 1 {
		t.Fatalf("expected stock 1, got %d", got.Stock)
	}
}
