package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// customerRepository — in-memory реализация CustomerRepository поверх Store.
type customerRepository struct {
	s *Store
}

// NewCustomerRepository возвращает in-memory репозиторий клиентов.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{s: store}
}

// Create сохраняет нового клиента, проверяя уникальность email.
func (r *customerRepository) Create(customer domain.Customer) (domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.customers {
		if existing.Email == customer.Email {
			return domain.Customer{}, domain.ErrDuplicateEmail
		}
	}

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	customer.UpdatedAt = customer.CreatedAt

	r.s.customers[customer.ID] = customer
	return customer, nil
}

// Get возвращает клиента или ErrCustomerNotFound, если его нет.
func (r *customerRepository) Get(id string) (domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	customer, ok := r.s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// GetByEmail возвращает клиента по email или ErrCustomerNotFound.
func (r *customerRepository) GetByEmail(email string) (domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, customer := range r.s.customers {
		if customer.Email == email {
			return customer, nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

// Update применяет частичное обновление и возвращает свежую запись.
func (r *customerRepository) Update(id string, fields domain.CustomerUpdate) (domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	customer, ok := r.s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}

	if fields.Phone != nil {
		customer.Phone = *fields.Phone
	}
	if fields.City != nil {
		customer.City = *fields.City
	}
	customer.UpdatedAt = time.Now().UTC()

	r.s.customers[id] = customer
	return customer, nil
}

// Delete удаляет клиента или возвращает ErrCustomerNotFound.
func (r *customerRepository) Delete(id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.customers[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	delete(r.s.customers, id)
	return nil
}

// List возвращает клиентов в порядке создания, ограничивая выборку limit (если >0).
func (r *customerRepository) List(limit int) ([]domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Customer, 0, len(r.s.customers))
	for _, customer := range r.s.customers {
		result = append(result, customer)
	}

	sortCustomers(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// FindByCity возвращает всех клиентов указанного города.
func (r *customerRepository) FindByCity(city string) ([]domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Customer, 0)
	for _, customer := range r.s.customers {
		if customer.City == city {
			result = append(result, customer)
		}
	}

	sortCustomers(result)
	return result, nil
}

func sortCustomers(customers []domain.Customer) {
	sort.Slice(customers, func(i, j int) bool {
		if !customers[i].CreatedAt.Equal(customers[j].CreatedAt) {
			return customers[i].CreatedAt.Before(customers[j].CreatedAt)
		}
		return customers[i].ID < customers[j].ID
	})
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
