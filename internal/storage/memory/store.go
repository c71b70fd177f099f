package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// Store — разделяемое in-memory состояние всех розничных сущностей для
// локальной разработки и тестов. Репозитории конструируются поверх одного
// Store; мьютекс общий, поэтому составные workflow-операции (списание
// стока + заказ + платёж) выполняются атомарно под одной блокировкой.
type Store struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
	products  map[string]domain.Product
	orders    map[string]domain.Order
	payments  map[string]domain.Payment
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
		orders:    make(map[string]domain.Order),
		payments:  make(map[string]domain.Payment),
	}
}

// cloneOrder возвращает копию заказа с собственным слайсом позиций,
// чтобы избежать непредсказуемых мутаций извне.
func cloneOrder(order domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return order
}
