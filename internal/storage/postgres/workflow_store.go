package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// workflowStore выполняет многосущностные шаги жизненного цикла заказа.
// Каждый метод работает в одной транзакции: частичных списаний или
// полусохранённых заказов после отказа не остаётся.
type workflowStore struct {
	db *sql.DB
}

// NewWorkflowStore создаёт PostgreSQL-реализацию WorkflowStore.
func NewWorkflowStore(store *Store) domain.WorkflowStore {
	return &workflowStore{db: store.DB()}
}

// PlaceOrder списывает остатки условными апдейтами и вставляет заказ,
// позиции и платёж. Условие stock >= qty внутри UPDATE закрывает гонку
// между проверкой остатка и списанием: конкурирующая транзакция либо
// увидит уже уменьшенный сток, либо получит отказ.
func (s *workflowStore) PlaceOrder(order domain.Order, payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewDataAccessError("begin place order tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, item := range order.Items {
		if err = s.decrementStock(ctx, tx, item.ProductID, item.Qty); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, status, amount_minor, version, order_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		order.ID, order.CustomerID, string(order.Status), order.AmountMinor,
		order.Version, order.OrderDate, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return domain.NewDataAccessError("insert order", err)
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, qty, price_minor, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`,
			item.ID, order.ID, item.ProductID, item.Qty, item.PriceMinor, item.CreatedAt,
		); err != nil {
			return domain.NewDataAccessError("insert order item", err)
		}
	}

	if err = s.insertPayment(ctx, tx, payment); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return domain.NewDataAccessError("commit place order", err)
	}

	return nil
}

// CompleteOrder переводит заказ в COMPLETED и платёж в PAID.
// Версия заказа проверяется оптимистично.
func (s *workflowStore) CompleteOrder(order domain.Order, payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewDataAccessError("begin complete order tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.saveOrderTx(ctx, tx, order); err != nil {
		return err
	}
	if err = s.savePaymentTx(ctx, tx, payment); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return domain.NewDataAccessError("commit complete order", err)
	}

	return nil
}

// CancelOrder возвращает остатки по всем позициям заказа, переводит
// заказ в CANCELLED и платёж в REFUNDED одной транзакцией.
func (s *workflowStore) CancelOrder(order domain.Order, payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewDataAccessError("begin cancel order tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Сначала статус с проверкой версии: повторная отмена не должна
	// вернуть остатки второй раз.
	if err = s.saveOrderTx(ctx, tx, order); err != nil {
		return err
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $2,
			    updated_at = NOW()
			WHERE id = $1
		`, item.ProductID, item.Qty); err != nil {
			return domain.NewDataAccessError("restore stock", err)
		}
	}

	if err = s.savePaymentTx(ctx, tx, payment); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return domain.NewDataAccessError("commit cancel order", err)
	}

	return nil
}

// RefundPayment переводит платёж в REFUNDED. Идемпотентен: повторный
// вызов для уже возвращённого платежа просто перезаписывает статус.
func (s *workflowStore) RefundPayment(payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewDataAccessError("begin refund tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.savePaymentTx(ctx, tx, payment); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return domain.NewDataAccessError("commit refund", err)
	}

	return nil
}

func (s *workflowStore) decrementStock(ctx context.Context, tx *sql.Tx, productID string, qty int32) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND stock >= $2
	`, productID, qty)
	if err != nil {
		return domain.NewDataAccessError("decrement stock", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewDataAccessError("decrement stock rows affected", err)
	}
	if affected == 0 {
		var available int32
		err = tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrProductNotFound
		}
		if err != nil {
			return domain.NewDataAccessError("check product stock", err)
		}
		return &domain.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: available,
		}
	}

	return nil
}

func (s *workflowStore) saveOrderTx(ctx context.Context, tx *sql.Tx, order domain.Order) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    amount_minor = $3,
		    version = version + 1,
		    updated_at = $4
		WHERE id = $1
		  AND version = $5
	`,
		order.ID, string(order.Status), order.AmountMinor, order.UpdatedAt, order.Version,
	)
	if err != nil {
		return domain.NewDataAccessError("update order", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewDataAccessError("update order rows affected", err)
	}
	if affected == 0 {
		var id string
		err = tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, order.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return domain.NewDataAccessError("check order exists", err)
		}
		return domain.ErrOrderVersionConflict
	}

	return nil
}

func (s *workflowStore) savePaymentTx(ctx context.Context, tx *sql.Tx, payment domain.Payment) error {
	var paidAt interface{}
	if payment.PaidAt != nil {
		paidAt = payment.PaidAt.UTC()
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $2,
		    method = $3,
		    paid_at = $4,
		    updated_at = NOW()
		WHERE id = $1
	`,
		payment.ID, string(payment.Status), string(payment.Method), paidAt,
	)
	if err != nil {
		return domain.NewDataAccessError("update payment", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewDataAccessError("update payment rows affected", err)
	}
	if affected == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

func (s *workflowStore) insertPayment(ctx context.Context, tx *sql.Tx, payment domain.Payment) error {
	var paidAt interface{}
	if payment.PaidAt != nil {
		paidAt = payment.PaidAt.UTC()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, amount_minor, status, method, paid_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		payment.ID, payment.OrderID, payment.AmountMinor, string(payment.Status),
		string(payment.Method), paidAt, payment.CreatedAt, payment.UpdatedAt,
	); err != nil {
		return domain.NewDataAccessError("insert payment", err)
	}

	return nil
}

var _ domain.WorkflowStore = (*workflowStore)(nil)
