package domain_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

func TestInsufficientStockError_Is(t *testing.T) {
	err := &domain.InsufficientStockError{ProductID: "product-1", Requested: 20, Available: 10}

	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatal("InsufficientStockError must match ErrInsufficientStock")
	}
	if !strings.Contains(err.Error(), "product-1") {
		t.Fatalf("error must name the offending product, got %q", err.Error())
	}
}

func TestInvalidOrderStateError_Is(t *testing.T) {
	err := &domain.InvalidOrderStateError{
		OrderID:  "order-1",
		Current:  domain.OrderStatusCompleted,
		Expected: domain.OrderStatusPlaced,
	}

	if !errors.Is(err, domain.ErrInvalidOrderState) {
		t.Fatal("InvalidOrderStateError must match ErrInvalidOrderState")
	}
	if !strings.Contains(err.Error(), string(domain.OrderStatusCompleted)) {
		t.Fatalf("error must name the current status, got %q", err.Error())
	}
}

func TestDataAccessError(t *testing.T) {
	root := errors.New("connection reset")
	err := domain.NewDataAccessError("insert order", root)

	if !domain.IsDataAccess(err) {
		t.Fatal("IsDataAccess must report DataAccessError")
	}
	if !errors.Is(err, root) {
		t.Fatal("DataAccessError must unwrap to the driver error")
	}
	// Обёрнутый DataAccessError остаётся распознаваемым.
	wrapped := fmt.Errorf("place order: %w", err)
	if !domain.IsDataAccess(wrapped) {
		t.Fatal("IsDataAccess must see through wrapping")
	}
	if domain.IsDataAccess(domain.ErrOrderNotFound) {
		t.Fatal("business errors must not look like data access failures")
	}
}

func TestIsNotFound(t *testing.T) {
	for _, err := range []error{
		domain.ErrCustomerNotFound,
		domain.ErrProductNotFound,
		domain.ErrOrderNotFound,
		domain.ErrPaymentNotFound,
	} {
		if !domain.IsNotFound(err) {
			t.Fatalf("IsNotFound(%v) = false", err)
		}
	}
	if domain.IsNotFound(domain.ErrDuplicateEmail) {
		t.Fatal("ErrDuplicateEmail is not a not-found error")
	}
}

func TestIsVersionConflict(t *testing.T) {
	if !domain.IsVersionConflict(domain.ErrOrderVersionConflict) {
		t.Fatal("IsVersionConflict must match the sentinel")
	}
	if domain.IsVersionConflict(domain.ErrOrderNotFound) {
		t.Fatal("unrelated errors must not match")
	}
}
