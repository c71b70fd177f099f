package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

func TestWorkflowStore_PostgresPlaceOrder(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)

	customer := seedIntegrationCustomer(t, store, "place@example.com")
	product := seedIntegrationProduct(t, store, "SKU-PLACE", 1_500_00, 10)

	now := time.Now().UTC().Round(time.Microsecond)
	order, payment := placeIntegrationOrder(t, store, customer.ID, []domain.OrderItem{{
		ID: "wf-1-item-1", OrderID: "wf-1", ProductID: product.ID,
		Qty: 3, PriceMinor: product.PriceMinor, CreatedAt: now,
	}})

	got, err := NewProductRepository(store).Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 7 {
		t.Fatalf("expected stock 7 after place, got %d", got.Stock)
	}

	stored, err := NewOrderRepository(store).Get(order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Status != domain.OrderStatusPlaced {
		t.Fatalf("expected PLACED, got %s", stored.Status)
	}

	latest, err := NewPaymentRepository(store).GetLatestByOrder(order.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if latest.ID != payment.ID || latest.Status != domain.PaymentStatusPending {
		t.Fatalf("unexpected payment: %+v", latest)
	}
}

func TestWorkflowStore_PostgresPlaceOrderInsufficientStock(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)

	customer := seedIntegrationCustomer(t, store, "shortage@example.com")
	plenty := seedIntegrationProduct(t, store, "SKU-PLENTY", 500_00, 100)
	scarce := seedIntegrationProduct(t, store, "SKU-SCARCE", 900_00, 2)

	now := time.Now().UTC().Round(time.Microsecond)
	order := domain.Order{
		ID:         "wf-short",
		CustomerID: customer.ID,
		Status:     domain.OrderStatusPlaced,
		Items: []domain.OrderItem{
			{ID: "wf-short-1", OrderID: "wf-short", ProductID: plenty.ID, Qty: 5, PriceMinor: 500_00, CreatedAt: now},
			{ID: "wf-short-2", OrderID: "wf-short", ProductID: scarce.ID, Qty: 3, PriceMinor: 900_00, CreatedAt: now},
		},
		AmountMinor: 5*500_00 + 3*900_00,
		OrderDate:   now, CreatedAt: now, UpdatedAt: now,
	}
	payment := domain.Payment{
		ID: "wf-short-payment", OrderID: order.ID, AmountMinor: order.AmountMinor,
		Status: domain.PaymentStatusPending, CreatedAt: now, UpdatedAt: now,
	}

	err := NewWorkflowStore(store).PlaceOrder(order, payment)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected typed error, got %T", err)
	}
	if stockErr.ProductID != scarce.ID || stockErr.Available != 2 {
		t.Fatalf("unexpected error details: %+v", stockErr)
	}

	// Транзакция откатилась: списания первой позиции нет, заказа нет.
	products := NewProductRepository(store)
	gotPlenty, err := products.Get(plenty.ID)
	if err != nil {
		t.Fatalf("get plenty: %v", err)
	}
	if gotPlenty.Stock != 100 {
		t.Fatalf("expected plenty stock untouched, got %d", gotPlenty.Stock)
	}
	if _, err := NewOrderRepository(store).Get(order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected order absent, got %v", err)
	}
}

func TestWorkflowStore_PostgresCompleteAndRefund(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	workflow := NewWorkflowStore(store)

	customer := seedIntegrationCustomer(t, store, "complete@example.com")
	product := seedIntegrationProduct(t, store, "SKU-COMPLETE", 1_000_00, 20)

	now := time.Now().UTC().Round(time.Microsecond)
	order, payment := placeIntegrationOrder(t, store, customer.ID, []domain.OrderItem{{
		ID: "wf-c-item-1", OrderID: "wf-c", ProductID: product.ID,
		Qty: 1, PriceMinor: product.PriceMinor, CreatedAt: now,
	}})

	paidAt := now.Add(time.Minute)
	order.Status = domain.OrderStatusCompleted
	order.UpdatedAt = paidAt
	payment.Status = domain.PaymentStatusPaid
	payment.Method = domain.PaymentMethodCard
	payment.PaidAt = &paidAt

	if err := workflow.CompleteOrder(order, payment); err != nil {
		t.Fatalf("complete order: %v", err)
	}

	stored, err := NewOrderRepository(store).Get(order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Status != domain.OrderStatusCompleted || stored.Version != order.Version+1 {
		t.Fatalf("unexpected order after complete: %+v", stored)
	}

	latest, err := NewPaymentRepository(store).GetLatestByOrder(order.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if latest.Status != domain.PaymentStatusPaid || latest.Method != domain.PaymentMethodCard {
		t.Fatalf("unexpected payment after complete: %+v", latest)
	}
	if latest.PaidAt == nil {
		t.Fatal("expected paid_at set")
	}

	// Stale version must be rejected.
	stale := order
	stale.Status = domain.OrderStatusCancelled
	if err := workflow.CompleteOrder(stale, payment); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	payment.Status = domain.PaymentStatusRefunded
	if err := workflow.RefundPayment(payment); err != nil {
		t.Fatalf("refund payment: %v", err)
	}
	if err := workflow.RefundPayment(payment); err != nil {
		t.Fatalf("refund payment twice: %v", err)
	}
}

func TestWorkflowStore_PostgresCancelRestoresStock(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	workflow := NewWorkflowStore(store)

	customer := seedIntegrationCustomer(t, store, "cancel@example.com")
	product := seedIntegrationProduct(t, store, "SKU-CANCEL", 700_00, 8)

	now := time.Now().UTC().Round(time.Microsecond)
	order, payment := placeIntegrationOrder(t, store, customer.ID, []domain.OrderItem{{
		ID: "wf-x-item-1", OrderID: "wf-x", ProductID: product.ID,
		Qty: 5, PriceMinor: product.PriceMinor, CreatedAt: now,
	}})

	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = now.Add(time.Minute)
	payment.Status = domain.PaymentStatusRefunded

	if err := workflow.CancelOrder(order, payment); err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	got, err := NewProductRepository(store).Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 8 {
		t.Fatalf("expected stock restored to 8, got %d", got.Stock)
	}

	// Повторная отмена со старой версией не возвращает остатки второй раз.
	if err := workflow.CancelOrder(order, payment); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected version conflict on repeated cancel, got %v", err)
	}
	got, err = NewProductRepository(store).Get(product.ID)
	if err != nil {
		t.Fatalf("get product after repeat: %v", err)
	}
	if got.Stock != 8 {
		t.Fatalf("expected stock still 8, got %d", got.Stock)
	}
}
