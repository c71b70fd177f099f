package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

func makePayment() domain.Payment {
	now := time.Now().UTC()
	return domain.Payment{
		ID:          "payment-1",
		OrderID:     "order-1",
		AmountMinor: 500,
		Status:      domain.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestPaymentValidate_Ok(t *testing.T) {
	payment := makePayment()
	if errs := payment.Validate(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestPaymentValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(p *domain.Payment)
	}{
		{
			name: "no order id",
			mut: func(p *domain.Payment) {
				p.OrderID = ""
			},
		},
		{
			name: "negative amount",
			mut: func(p *domain.Payment) {
				p.AmountMinor = -1
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payment := makePayment()
			tc.mut(&payment)
			if len(payment.Validate()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestParsePaymentMethod(t *testing.T) {
	for _, raw := range []string{"cash", "card", "mobile_transfer"} {
		method, err := domain.ParsePaymentMethod(raw)
		if err != nil {
			t.Fatalf("ParsePaymentMethod(%q) returned error: %v", raw, err)
		}
		if string(method) != raw {
			t.Fatalf("ParsePaymentMethod(%q) = %q", raw, method)
		}
	}

	if _, err := domain.ParsePaymentMethod("barter"); !errors.Is(err, domain.ErrUnknownPaymentMethod) {
		t.Fatalf("expected ErrUnknownPaymentMethod, got %v", err)
	}
}
