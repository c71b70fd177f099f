package domain

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	// Create сохраняет нового клиента и возвращает вставленную запись.
	// Возвращает ErrDuplicateEmail при конфликте по email.
	Create(customer Customer) (Customer, error)
	// Get возвращает клиента по идентификатору или ErrCustomerNotFound.
	Get(id string) (Customer, error)
	// GetByEmail возвращает клиента по email или ErrCustomerNotFound.
	GetByEmail(email string) (Customer, error)
	// Update применяет частичное обновление и возвращает свежую запись.
	Update(id string, fields CustomerUpdate) (Customer, error)
	// Delete удаляет клиента или возвращает ErrCustomerNotFound.
	Delete(id string) error
	// List возвращает клиентов, ограничивая выборку limit (если >0).
	List(limit int) ([]Customer, error)
	// FindByCity возвращает всех клиентов указанного города.
	FindByCity(city string) ([]Customer, error)
}

// ProductRepository описывает требования к хранилищу каталога.
// Остаток товара через этот интерфейс не изменяется: stock мутирует
// только WorkflowStore в рамках жизненного цикла заказа.
type ProductRepository interface {
	// Create сохраняет новый товар и возвращает вставленную запись.
	// Возвращает ErrDuplicateSKU при конфликте по SKU.
	Create(product Product) (Product, error)
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(id string) (Product, error)
	// GetBySKU возвращает товар по SKU или ErrProductNotFound.
	GetBySKU(sku string) (Product, error)
	// Update применяет частичное обновление (имя/цена/категория).
	Update(id string, fields ProductUpdate) (Product, error)
	// List возвращает товары, ограничивая выборку limit (если >0).
	List(limit int) ([]Product, error)
}

// OrderRepository — read-слой заказов. Мутации проходят через WorkflowStore.
type OrderRepository interface {
	// Get возвращает заказ вместе с позициями или ErrOrderNotFound.
	Get(id string) (Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным лимитом.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// CountByCustomer возвращает число заказов клиента
	// (используется directory при удалении клиента).
	CountByCustomer(customerID string) (int, error)
}

// PaymentRepository — read-слой платежей.
type PaymentRepository interface {
	// GetLatestByOrder возвращает актуальный платёж заказа или ErrPaymentNotFound.
	// «Актуальный» — самый свежий по created_at (дубликаты не ожидаются,
	// но правило делает выбор детерминированным).
	GetLatestByOrder(orderID string) (Payment, error)
}

// WorkflowStore выполняет многосущностные мутации жизненного цикла заказа.
// Каждый метод атомарен: либо применяется весь эффект, либо ничего.
type WorkflowStore interface {
	// PlaceOrder списывает остатки по всем позициям заказа условными
	// апдейтами (stock >= qty) и вставляет заказ, позиции и PENDING-платёж.
	// При нехватке остатка возвращает InsufficientStockError без частичных
	// изменений; при отсутствии товара — ErrProductNotFound.
	PlaceOrder(order Order, payment Payment) error
	// CompleteOrder переводит заказ в COMPLETED и платёж в PAID
	// (метод и paid_at берутся из payment). Проверяет версию заказа.
	CompleteOrder(order Order, payment Payment) error
	// CancelOrder возвращает остатки по всем позициям (точная инверсия
	// PlaceOrder), переводит заказ в CANCELLED и платёж в REFUNDED.
	CancelOrder(order Order, payment Payment) error
	// RefundPayment переводит платёж в REFUNDED. Идемпотентен.
	RefundPayment(payment Payment) error
}
