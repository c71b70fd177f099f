package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// productRepository — in-memory реализация ProductRepository поверх Store.
type productRepository struct {
	s *Store
}

// NewProductRepository возвращает in-memory репозиторий каталога.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{s: store}
}

// Create сохраняет новый товар, проверяя уникальность SKU.
func (r *productRepository) Create(product domain.Product) (domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.products {
		if existing.SKU == product.SKU {
			return domain.Product{}, domain.ErrDuplicateSKU
		}
	}

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.UpdatedAt = product.CreatedAt

	r.s.products[product.ID] = product
	return product, nil
}

// Get возвращает товар или ErrProductNotFound, если его нет.
func (r *productRepository) Get(id string) (domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	product, ok := r.s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// GetBySKU возвращает товар по SKU или ErrProductNotFound.
func (r *productRepository) GetBySKU(sku string) (domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, product := range r.s.products {
		if product.SKU == sku {
			return product, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

// Update применяет частичное обновление (имя/цена/категория). Остаток
// через этот метод не меняется.
func (r *productRepository) Update(id string, fields domain.ProductUpdate) (domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	product, ok := r.s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}

	if fields.Name != nil {
		product.Name = *fields.Name
	}
	if fields.PriceMinor != nil {
		product.PriceMinor = *fields.PriceMinor
	}
	if fields.Category != nil {
		product.Category = *fields.Category
	}
	product.UpdatedAt = time.Now().UTC()

	r.s.products[id] = product
	return product, nil
}

// List возвращает товары в порядке создания, ограничивая выборку limit (если >0).
func (r *productRepository) List(limit int) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.s.products))
	for _, product := range r.s.products {
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
