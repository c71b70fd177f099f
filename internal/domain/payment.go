package domain

import "time"

// PaymentStatus описывает состояние платежа по заказу.
type PaymentStatus string

const (
	// PaymentStatusPending — платёж создан вместе с заказом, оплата не выполнена.
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusPaid — оплата подтверждена.
	PaymentStatusPaid PaymentStatus = "PAID"
	// PaymentStatusRefunded — деньги возвращены клиенту; терминальный статус.
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// PaymentMethod — способ оплаты из фиксированного набора.
type PaymentMethod string

const (
	PaymentMethodCash           PaymentMethod = "cash"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodMobileTransfer PaymentMethod = "mobile_transfer"
)

// ParsePaymentMethod валидирует способ оплаты, полученный от вызывающей стороны.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(raw) {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobileTransfer:
		return PaymentMethod(raw), nil
	default:
		return "", ErrUnknownPaymentMethod
	}
}

// Payment описывает платёж, связанный с заказом.
// На каждый заказ при создании заводится ровно одна запись со статусом PENDING;
// дальнейшие переходы обновляют эту запись, а не создают новую.
type Payment struct {
	ID          string
	OrderID     string
	AmountMinor int64
	Status      PaymentStatus
	Method      PaymentMethod // Пустой до успешной оплаты.
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *Payment) Validate() []error {
	var errs []error

	if p.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if p.AmountMinor < 0 {
		errs = append(errs, ErrPaymentAmountNegative)
	}

	return errs
}
