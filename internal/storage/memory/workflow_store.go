package memory

import (
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// workflowStore — in-memory реализация WorkflowStore поверх Store.
// Каждый метод держит общий мьютекс на весь составной шаг, поэтому
// эффект применяется целиком либо не применяется вовсе.
type workflowStore struct {
	s *Store
}

// NewWorkflowStore возвращает in-memory реализацию WorkflowStore.
func NewWorkflowStore(store *Store) domain.WorkflowStore {
	return &workflowStore{s: store}
}

// PlaceOrder списывает остатки и вставляет заказ, позиции и платёж.
// Все позиции проверяются до первой мутации: нехватка остатка или
// отсутствующий товар не оставляют частичных списаний.
func (w *workflowStore) PlaceOrder(order domain.Order, payment domain.Payment) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	if _, exists := w.s.orders[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}

	for _, item := range order.Items {
		product, ok := w.s.products[item.ProductID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if product.Stock < item.Qty {
			return &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Qty,
				Available: product.Stock,
			}
		}
	}

	now := time.Now().UTC()
	for _, item := range order.Items {
		product := w.s.products[item.ProductID]
		product.Stock -= item.Qty
		product.UpdatedAt = now
		w.s.products[item.ProductID] = product
	}

	w.s.orders[order.ID] = cloneOrder(order)
	w.s.payments[payment.ID] = payment
	return nil
}

// CompleteOrder переводит заказ в COMPLETED, а платёж — в PAID.
func (w *workflowStore) CompleteOrder(order domain.Order, payment domain.Payment) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	if err := w.saveOrderLocked(order); err != nil {
		return err
	}
	return w.savePaymentLocked(payment)
}

// CancelOrder возвращает остатки по позициям и фиксирует отмену.
func (w *workflowStore) CancelOrder(order domain.Order, payment domain.Payment) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	current, ok := w.s.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}

	// Инверсия PlaceOrder: инкремент стока по каждой позиции ровно один раз.
	now := time.Now().UTC()
	for _, item := range current.Items {
		product, ok := w.s.products[item.ProductID]
		if !ok {
			return domain.ErrProductNotFound
		}
		product.Stock += item.Qty
		product.UpdatedAt = now
		w.s.products[item.ProductID] = product
	}

	order.Version++
	w.s.orders[order.ID] = cloneOrder(order)
	return w.savePaymentLocked(payment)
}

// RefundPayment переводит платёж в REFUNDED. Идемпотентен.
func (w *workflowStore) RefundPayment(payment domain.Payment) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	return w.savePaymentLocked(payment)
}

// saveOrderLocked перезаписывает заказ с проверкой версии (optimistic locking).
func (w *workflowStore) saveOrderLocked(order domain.Order) error {
	current, ok := w.s.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}

	order.Version++
	w.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (w *workflowStore) savePaymentLocked(payment domain.Payment) error {
	if _, ok := w.s.payments[payment.ID]; !ok {
		return domain.ErrPaymentNotFound
	}
	payment.UpdatedAt = time.Now().UTC()
	w.s.payments[payment.ID] = payment
	return nil
}

var _ domain.WorkflowStore = (*workflowStore)(nil)
