package directory

import (
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
)

type stubOrderCounter struct {
	domain.OrderRepository
	count int
	err   error
}

func (s *stubOrderCounter) CountByCustomer(customerID string) (int, error) {
	return s.count, s.err
}

func newService(t *testing.T, orders domain.OrderRepository) (*Service, domain.CustomerRepository) {
	t.Helper()

	store := memory.NewStore()
	customers := memory.NewCustomerRepository(store)
	if orders == nil {
		orders = memory.NewOrderRepository(store)
	}
	return NewService(customers, orders, log.New().WithField("test", t.Name())), customers
}

func TestAddCustomer(t *testing.T) {
	svc, _ := newService(t, nil)

	created, err := svc.AddCustomer(domain.Customer{
		Name:  "Ivan Sidorov",
		Email: "ivan@example.com",
		Phone: "+7 900 000-00-00",
		City:  "Pskov",
	})
	if err != nil {
		t.Fatalf("add customer: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := svc.GetCustomer(created.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got.Email != "ivan@example.com" {
		t.Fatalf("unexpected email: %s", got.Email)
	}

	byEmail, err := svc.GetCustomerByEmail("ivan@example.com")
	if err != nil {
		t.Fatalf("get customer by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("unexpected customer by email: %s", byEmail.ID)
	}

	if _, err := svc.GetCustomerByEmail("nobody@example.com"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestAddCustomer_Validation(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.AddCustomer(domain.Customer{Email: "no-name@example.com"})
	if !errors.Is(err, domain.ErrCustomerNameRequired) {
		t.Fatalf("expected name required, got %v", err)
	}

	_, err = svc.AddCustomer(domain.Customer{Name: "No Email"})
	if !errors.Is(err, domain.ErrCustomerEmailRequired) {
		t.Fatalf("expected email required, got %v", err)
	}
}

func TestAddCustomer_DuplicateEmail(t *testing.T) {
	svc, _ := newService(t, nil)

	if _, err := svc.AddCustomer(domain.Customer{Name: "First", Email: "dup@example.com"}); err != nil {
		t.Fatalf("add first: %v", err)
	}
	_, err := svc.AddCustomer(domain.Customer{Name: "Second", Email: "dup@example.com"})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
}

func TestUpdateCustomer(t *testing.T) {
	svc, _ := newService(t, nil)

	created, err := svc.AddCustomer(domain.Customer{Name: "Olga", Email: "olga@example.com", City: "Tver"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	city := "Torzhok"
	updated, err := svc.UpdateCustomer(created.ID, domain.CustomerUpdate{City: &city})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.City != "Torzhok" {
		t.Fatalf("expected city Torzhok, got %s", updated.City)
	}
	// Незатронутые поля сохраняются.
	if updated.Name != "Olga" || updated.Email != "olga@example.com" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}

	if _, err := svc.UpdateCustomer(created.ID, domain.CustomerUpdate{}); !errors.Is(err, domain.ErrNoFieldsToUpdate) {
		t.Fatalf("expected no fields error, got %v", err)
	}

	if _, err := svc.UpdateCustomer("missing", domain.CustomerUpdate{City: &city}); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteCustomer(t *testing.T) {
	svc, customers := newService(t, nil)

	created, err := svc.AddCustomer(domain.Customer{Name: "Temp", Email: "temp@example.com"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.DeleteCustomer(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := customers.Get(created.ID); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected customer gone, got %v", err)
	}

	if err := svc.DeleteCustomer("missing"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteCustomer_WithOrders(t *testing.T) {
	svc, customers := newService(t, &stubOrderCounter{count: 2})

	created, err := svc.AddCustomer(domain.Customer{Name: "Loyal", Email: "loyal@example.com"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.DeleteCustomer(created.ID); !errors.Is(err, domain.ErrCustomerHasOrders) {
		t.Fatalf("expected has-orders guard, got %v", err)
	}
	// Клиент остаётся на месте.
	if _, err := customers.Get(created.ID); err != nil {
		t.Fatalf("expected customer kept, got %v", err)
	}
}

func TestSearchCustomers(t *testing.T) {
	svc, _ := newService(t, nil)

	seed := []domain.Customer{
		{Name: "A", Email: "a@example.com", City: "Pskov"},
		{Name: "B", Email: "b@example.com", City: "Tver"},
		{Name: "C", Email: "c@example.com", City: "Pskov"},
	}
	for _, c := range seed {
		if _, err := svc.AddCustomer(c); err != nil {
			t.Fatalf("seed %s: %v", c.Email, err)
		}
	}

	t.Run("by email", func(t *testing.T) {
		found, err := svc.SearchCustomers(SearchQuery{Email: "b@example.com"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(found) != 1 || found[0].Name != "B" {
			t.Fatalf("unexpected result: %+v", found)
		}
	})

	t.Run("email wins over city", func(t *testing.T) {
		found, err := svc.SearchCustomers(SearchQuery{Email: "b@example.com", City: "Pskov"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(found) != 1 || found[0].Name != "B" {
			t.Fatalf("expected email precedence, got %+v", found)
		}
	})

	t.Run("by city", func(t *testing.T) {
		found, err := svc.SearchCustomers(SearchQuery{City: "Pskov"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(found) != 2 {
			t.Fatalf("expected 2 customers, got %d", len(found))
		}
	})

	t.Run("unknown email is empty not error", func(t *testing.T) {
		found, err := svc.SearchCustomers(SearchQuery{Email: "nobody@example.com"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(found) != 0 {
			t.Fatalf("expected empty result, got %+v", found)
		}
	})

	t.Run("empty query lists all", func(t *testing.T) {
		found, err := svc.SearchCustomers(SearchQuery{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(found) != 3 {
			t.Fatalf("expected 3 customers, got %d", len(found))
		}
	})
}
