package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// helper для создания базового заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:          "order-1",
		CustomerID:  "customer-1",
		Status:      domain.OrderStatusPlaced,
		AmountMinor: 500,
		Items: []domain.OrderItem{
			{
				ID:         "item-1",
				OrderID:    "order-1",
				ProductID:  "product-1",
				Qty:        5,
				PriceMinor: 100,
				CreatedAt:  now,
			},
		},
		Version:   0,
		OrderDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no customer",
			mut: func(o *domain.Order) {
				o.CustomerID = ""
			},
		},
		{
			name: "negative amount",
			mut: func(o *domain.Order) {
				o.AmountMinor = -1
			},
		},
		{
			name: "no items",
			mut: func(o *domain.Order) {
				o.Items = nil
			},
		},
		{
			name: "no product",
			mut: func(o *domain.Order) {
				o.Items[0].ProductID = ""
			},
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Items[0].Qty = 0
			},
		},
		{
			name: "price invalid",
			mut: func(o *domain.Order) {
				o.Items[0].PriceMinor = -5
			},
		},
		{
			name: "amount mismatch",
			mut: func(o *domain.Order) {
				o.AmountMinor = 999
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			// Изменяем состояние согласно сценарию.
			mutOrder := order
			tc.mut(&mutOrder)

			if len(mutOrder.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestOrderCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from domain.OrderStatus
		to   domain.OrderStatus
		want bool
	}{
		{"placed to completed", domain.OrderStatusPlaced, domain.OrderStatusCompleted, true},
		{"placed to cancelled", domain.OrderStatusPlaced, domain.OrderStatusCancelled, true},
		{"completed is terminal", domain.OrderStatusCompleted, domain.OrderStatusCancelled, false},
		{"cancelled is terminal", domain.OrderStatusCancelled, domain.OrderStatusCompleted, false},
		{"no return to placed", domain.OrderStatusCompleted, domain.OrderStatusPlaced, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			order.Status = tc.from
			if got := order.CanTransition(tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s→%s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	if domain.OrderStatusPlaced.IsTerminal() {
		t.Fatal("PLACED must not be terminal")
	}
	if !domain.OrderStatusCompleted.IsTerminal() {
		t.Fatal("COMPLETED must be terminal")
	}
	if !domain.OrderStatusCancelled.IsTerminal() {
		t.Fatal("CANCELLED must be terminal")
	}
}
