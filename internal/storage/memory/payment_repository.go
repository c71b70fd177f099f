package memory

import (
	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// paymentRepository — in-memory read-слой платежей поверх Store.
type paymentRepository struct {
	s *Store
}

// NewPaymentRepository возвращает in-memory репозиторий платежей.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{s: store}
}

// GetLatestByOrder возвращает самый свежий платёж заказа.
// Дубликаты не ожидаются, но выбор детерминирован: created_at, затем id.
func (r *paymentRepository) GetLatestByOrder(orderID string) (domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var (
		latest domain.Payment
		found  bool
	)
	for _, payment := range r.s.payments {
		if payment.OrderID != orderID {
			continue
		}
		if !found || payment.CreatedAt.After(latest.CreatedAt) ||
			(payment.CreatedAt.Equal(latest.CreatedAt) && payment.ID > latest.ID) {
			latest = payment
			found = true
		}
	}

	if !found {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return latest, nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
