package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{db: store.DB()}
}

func (r *paymentRepository) GetLatestByOrder(orderID string) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		payment domain.Payment
		status  string
		method  string
		paidAt  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, amount_minor, status, method, paid_at, created_at, updated_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, orderID).Scan(
		&payment.ID, &payment.OrderID, &payment.AmountMinor, &status, &method,
		&paidAt, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, domain.NewDataAccessError("select payment", err)
	}

	payment.Status = domain.PaymentStatus(status)
	payment.Method = domain.PaymentMethod(method)
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		payment.PaidAt = &t
	}

	return payment, nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
