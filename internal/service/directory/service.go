package directory

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// Service управляет справочником клиентов: создание, частичное
// обновление, удаление с защитой от потери истории заказов и поиск.
type Service struct {
	customers domain.CustomerRepository
	orders    domain.OrderRepository
	logger    *log.Entry
}

// NewService создаёт сервис справочника клиентов.
func NewService(customers domain.CustomerRepository, orders domain.OrderRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "directory")
	}
	return &Service{
		customers: customers,
		orders:    orders,
		logger:    logger,
	}
}

// AddCustomer валидирует и сохраняет нового клиента.
// Email уникален: при конфликте возвращается ErrDuplicateEmail.
func (s *Service) AddCustomer(customer domain.Customer) (domain.Customer, error) {
	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, errors.Join(errs...)
	}

	created, err := s.customers.Create(customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithFields(log.Fields{
		"customer_id": created.ID,
		"city":        created.City,
	}).Info("customer registered")

	return created, nil
}

// GetCustomer возвращает клиента по идентификатору.
func (s *Service) GetCustomer(id string) (domain.Customer, error) {
	return s.customers.Get(id)
}

// GetCustomerByEmail возвращает клиента по email.
func (s *Service) GetCustomerByEmail(email string) (domain.Customer, error) {
	return s.customers.GetByEmail(email)
}

// UpdateCustomer применяет частичное обновление контактных данных.
// Пустой набор полей отклоняется с ErrNoFieldsToUpdate.
func (s *Service) UpdateCustomer(id string, fields domain.CustomerUpdate) (domain.Customer, error) {
	if fields.IsEmpty() {
		return domain.Customer{}, domain.ErrNoFieldsToUpdate
	}

	updated, err := s.customers.Update(id, fields)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithField("customer_id", id).Info("customer updated")
	return updated, nil
}

// DeleteCustomer удаляет клиента. Клиент с заказами не удаляется:
// история заказов ссылается на него, вместо каскада возвращается
// ErrCustomerHasOrders.
func (s *Service) DeleteCustomer(id string) error {
	if _, err := s.customers.Get(id); err != nil {
		return err
	}

	count, err := s.orders.CountByCustomer(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrCustomerHasOrders
	}

	if err := s.customers.Delete(id); err != nil {
		return err
	}

	s.logger.WithField("customer_id", id).Info("customer deleted")
	return nil
}

// ListCustomers возвращает клиентов в порядке регистрации.
func (s *Service) ListCustomers(limit int) ([]domain.Customer, error) {
	return s.customers.List(limit)
}

// SearchQuery задаёт критерии поиска клиентов.
type SearchQuery struct {
	Email string
	City  string
}

// SearchCustomers ищет клиентов. Email точнее города, поэтому при
// заполненных обоих критериях поиск идёт по email; пустой запрос
// эквивалентен листингу без лимита.
func (s *Service) SearchCustomers(query SearchQuery) ([]domain.Customer, error) {
	if query.Email != "" {
		customer, err := s.customers.GetByEmail(query.Email)
		if err != nil {
			if errors.Is(err, domain.ErrCustomerNotFound) {
				return []domain.Customer{}, nil
			}
			return nil, err
		}
		return []domain.Customer{customer}, nil
	}

	if query.City != "" {
		return s.customers.FindByCity(query.City)
	}

	return s.customers.List(0)
}
