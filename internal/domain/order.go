package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPlaced — заказ создан, сток списан, ожидаем оплату.
	OrderStatusPlaced OrderStatus = "PLACED"
	// OrderStatusCompleted — заказ оплачен; терминальный статус.
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCancelled — заказ отменён, сток возвращён; терминальный статус.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsTerminal сообщает, допускает ли статус дальнейшие переходы заказа.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderItem представляет одну позицию заказа.
// Создаётся вместе с заказом и после этого не изменяется.
type OrderItem struct {
	ID      string
	OrderID string
	// ProductID — ссылка на товар каталога.
	ProductID string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу на момент оформления заказа.
	// Последующие изменения цены товара не влияют на историю.
	PriceMinor int64
	CreatedAt  time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID          string
	CustomerID  string
	Status      OrderStatus
	AmountMinor int64
	Items       []OrderItem
	Version     int64
	OrderDate   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if calc != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// CanTransition проверяет допустимость перехода заказа в новый статус.
// Разрешены только PLACED → COMPLETED (оплата) и PLACED → CANCELLED (отмена).
func (o *Order) CanTransition(next OrderStatus) bool {
	if o.Status != OrderStatusPlaced {
		return false
	}
	return next == OrderStatusCompleted || next == OrderStatusCancelled
}
