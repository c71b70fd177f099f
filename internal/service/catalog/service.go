package catalog

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// Service управляет каталогом товаров. Остатки товаров через каталог
// не изменяются: ими владеет жизненный цикл заказа.
type Service struct {
	products domain.ProductRepository
	logger   *log.Entry
}

// NewService создаёт сервис каталога.
func NewService(products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		products: products,
		logger:   logger,
	}
}

// AddProduct валидирует и сохраняет новый товар.
// SKU уникален: при конфликте возвращается ErrDuplicateSKU.
func (s *Service) AddProduct(product domain.Product) (domain.Product, error) {
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, errors.Join(errs...)
	}

	created, err := s.products.Create(product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"sku":        created.SKU,
	}).Info("product added")

	return created, nil
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(id string) (domain.Product, error) {
	return s.products.Get(id)
}

// GetProductBySKU возвращает товар по артикулу.
func (s *Service) GetProductBySKU(sku string) (domain.Product, error) {
	return s.products.GetBySKU(sku)
}

// UpdateProduct применяет частичное обновление описания товара.
// Пустой набор полей отклоняется с ErrNoFieldsToUpdate; цена и имя
// валидируются так же, как при создании.
func (s *Service) UpdateProduct(id string, fields domain.ProductUpdate) (domain.Product, error) {
	if fields.IsEmpty() {
		return domain.Product{}, domain.ErrNoFieldsToUpdate
	}
	if fields.PriceMinor != nil && *fields.PriceMinor < 0 {
		return domain.Product{}, domain.ErrItemPriceInvalid
	}
	if fields.Name != nil && *fields.Name == "" {
		return domain.Product{}, domain.ErrProductNameRequired
	}

	updated, err := s.products.Update(id, fields)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithField("product_id", id).Info("product updated")
	return updated, nil
}

// ListProducts возвращает товары в порядке добавления.
func (s *Service) ListProducts(limit int) ([]domain.Product, error) {
	return s.products.List(limit)
}
