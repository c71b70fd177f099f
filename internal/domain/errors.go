package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента в заказе.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка отсутствующего товара в позиции заказа.
	ErrItemProductRequired = errors.New("item product_id is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена отрицательная.
	ErrItemPriceInvalid = errors.New("price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")
	// Ошибка отрицательной суммы платежа.
	ErrPaymentAmountNegative = errors.New("payment amount must be non-negative")
	// Ошибка отсутствующего идентификатора заказа в платеже.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствующего имени клиента.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// Ошибка отсутствующего email клиента.
	ErrCustomerEmailRequired = errors.New("customer email is required")
	// Ошибка отсутствующего SKU товара.
	ErrProductSKURequired = errors.New("product sku is required")
	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательного остатка товара.
	ErrStockNegative = errors.New("product stock must be non-negative")

	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrPaymentNotFound возвращается, если по заказу нет платёжной записи.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrDuplicateEmail — клиент с таким email уже существует.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrDuplicateSKU — товар с таким SKU уже существует.
	ErrDuplicateSKU = errors.New("sku already exists")
	// ErrNoFieldsToUpdate — в запросе на обновление нет ни одного поля.
	ErrNoFieldsToUpdate = errors.New("no fields to update")
	// ErrCustomerHasOrders — клиента с заказами удалять нельзя.
	ErrCustomerHasOrders = errors.New("customer has orders and cannot be deleted")
	// ErrUnknownPaymentMethod — способ оплаты вне допустимого набора.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")

	// ErrInsufficientStock — недостаточно остатка; детали в InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidOrderState — операция неприменима к текущему статусу заказа.
	ErrInvalidOrderState = errors.New("invalid order state")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении заказа.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InsufficientStockError уточняет, по какому товару не хватило остатка.
type InsufficientStockError struct {
	ProductID string
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Is позволяет матчить ошибку через errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// InvalidOrderStateError уточняет текущий и ожидаемый статусы заказа.
type InvalidOrderStateError struct {
	OrderID  string
	Current  OrderStatus
	Expected OrderStatus
}

func (e *InvalidOrderStateError) Error() string {
	return fmt.Sprintf("order %s is %s, expected %s", e.OrderID, e.Current, e.Expected)
}

// Is позволяет матчить ошибку через errors.Is(err, ErrInvalidOrderState).
func (e *InvalidOrderStateError) Is(target error) bool {
	return target == ErrInvalidOrderState
}

// DataAccessError оборачивает сбой слоя хранения.
// Отличается от бизнес-ошибок: чтения можно повторять, мутации — нет.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// NewDataAccessError строит DataAccessError с именем операции хранилища.
func NewDataAccessError(op string, err error) error {
	return &DataAccessError{Op: op, Err: err}
}

// IsDataAccess проверяет, вызвана ли ошибка сбоем хранилища.
func IsDataAccess(err error) bool {
	var dae *DataAccessError
	return errors.As(err, &dae)
}

// IsValidation проверяет, вызвана ли ошибка некорректным входом вызывающей стороны.
func IsValidation(err error) bool {
	return errors.Is(err, ErrCustomerRequired) ||
		errors.Is(err, ErrItemsRequired) ||
		errors.Is(err, ErrAmountNegative) ||
		errors.Is(err, ErrItemProductRequired) ||
		errors.Is(err, ErrItemQtyInvalid) ||
		errors.Is(err, ErrItemPriceInvalid) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrUnknownPaymentMethod)
}

// IsNotFound проверяет, относится ли ошибка к отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
