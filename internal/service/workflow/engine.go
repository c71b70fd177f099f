package workflow

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
)

// Имена операций для метрик и событий.
const (
	opCreateOrder = "create_order"
	opPayOrder    = "pay_order"
	opCancelOrder = "cancel_order"
	opRefundOrder = "refund_order"

	timelineEventOrderPlaced    = "OrderPlaced"
	timelineEventOrderCompleted = "OrderCompleted"
	timelineEventOrderCancelled = "OrderCancelled"
	timelineEventOrderRefunded  = "OrderRefunded"
)

// ItemRequest описывает одну позицию запроса на создание заказа.
type ItemRequest struct {
	ProductID string
	Qty       int32
}

// OrderConfirmation — результат успешного создания заказа.
type OrderConfirmation struct {
	Order   domain.Order
	Payment domain.Payment
}

// PaymentResult — снимок заказа и платежа после оплаты.
type PaymentResult struct {
	Order   domain.Order
	Payment domain.Payment
}

// OrderDetails — композиция заказа, владельца и позиций.
type OrderDetails struct {
	Order    domain.Order
	Customer domain.Customer
	Items    []domain.OrderItem
}

// Engine оркестрирует жизненный цикл заказа: создание, оплату, отмену
// и возврат. Все многосущностные мутации уходят в WorkflowStore одним
// атомарным шагом; движок отвечает за валидацию, снапшоты цен и события.
type Engine struct {
	customers domain.CustomerRepository
	products  domain.ProductRepository
	orders    domain.OrderRepository
	payments  domain.PaymentRepository
	store     domain.WorkflowStore
	outbox    domain.OutboxRepository
	timeline  domain.TimelineRepository
	logger    *log.Entry
	metrics   *metrics.WorkflowMetrics
}

// NewEngine создаёт рабочий экземпляр движка.
func NewEngine(
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	store domain.WorkflowStore,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Engine {
	engine := newEngine(customers, products, orders, payments, store, outbox, timeline, logger)
	engine.metrics = metrics.NewWorkflowMetrics()
	return engine
}

// NewEngineWithoutMetrics создаёт движок без метрик (для тестов).
func NewEngineWithoutMetrics(
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	store domain.WorkflowStore,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Engine {
	return newEngine(customers, products, orders, payments, store, outbox, timeline, logger)
}

func newEngine(
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	store domain.WorkflowStore,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "workflow")
	}
	return &Engine{
		customers: customers,
		products:  products,
		orders:    orders,
		payments:  payments,
		store:     store,
		outbox:    outbox,
		timeline:  timeline,
		logger:    logger,
	}
}

// CreateOrder создаёт заказ для клиента по списку позиций.
// Все позиции валидируются (существование товара, достаточность остатка)
// до какой-либо мутации; цены снапшотятся на момент оформления.
// Списание стока повторно проверяется внутри WorkflowStore условным
// апдейтом, так что гонка check-then-act между чтением и записью закрыта.
func (e *Engine) CreateOrder(customerID string, items []ItemRequest) (OrderConfirmation, error) {
	start := time.Now()
	defer e.observeDuration(opCreateOrder, start)

	if customerID == "" {
		return OrderConfirmation{}, e.fail(opCreateOrder, domain.ErrCustomerRequired)
	}
	if len(items) == 0 {
		return OrderConfirmation{}, e.fail(opCreateOrder, domain.ErrItemsRequired)
	}

	customer, err := e.customers.Get(customerID)
	if err != nil {
		return OrderConfirmation{}, e.fail(opCreateOrder, err)
	}

	now := time.Now().UTC()
	orderID := uuid.NewString()

	orderItems := make([]domain.OrderItem, 0, len(items))
	var amount int64
	var units int64
	for _, req := range items {
		if req.Qty <= 0 {
			return OrderConfirmation{}, e.fail(opCreateOrder, domain.ErrItemQtyInvalid)
		}
		product, err := e.products.Get(req.ProductID)
		if err != nil {
			return OrderConfirmation{}, e.fail(opCreateOrder, err)
		}
		if product.Stock < req.Qty {
			return OrderConfirmation{}, e.fail(opCreateOrder, &domain.InsufficientStockError{
				ProductID: product.ID,
				Requested: req.Qty,
				Available: product.Stock,
			})
		}

		orderItems = append(orderItems, domain.OrderItem{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			ProductID:  product.ID,
			Qty:        req.Qty,
			PriceMinor: product.PriceMinor, // Снапшот текущей цены.
			CreatedAt:  now,
		})
		amount += int64(req.Qty) * product.PriceMinor
		units += int64(req.Qty)
	}

	order := domain.Order{
		ID:          orderID,
		CustomerID:  customer.ID,
		Status:      domain.OrderStatusPlaced,
		AmountMinor: amount,
		Items:       orderItems,
		Version:     0,
		OrderDate:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return OrderConfirmation{}, e.fail(opCreateOrder, errors.Join(errs...))
	}

	payment := domain.Payment{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		AmountMinor: amount,
		Status:      domain.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.store.PlaceOrder(order, payment); err != nil {
		return OrderConfirmation{}, e.fail(opCreateOrder, err)
	}

	if e.metrics != nil {
		e.metrics.RecordOrderPlaced()
		e.metrics.RecordStockReserved(units)
	}
	e.emitEvent(&order, kafka.EventTypeOrderPlaced, timelineEventOrderPlaced, map[string]interface{}{
		"customer_id":  customer.ID,
		"amount_minor": amount,
		"items_count":  len(orderItems),
	})

	e.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"customer_id":  customer.ID,
		"amount_minor": amount,
	}).Info("order placed")

	return OrderConfirmation{Order: order, Payment: payment}, nil
}

// PayOrder отмечает оплату заказа указанным способом.
// Оплачивать можно только заказы в статусе PLACED: повторная оплата,
// оплата отменённого или завершённого заказа отклоняется.
func (e *Engine) PayOrder(orderID, method string) (PaymentResult, error) {
	start := time.Now()
	defer e.observeDuration(opPayOrder, start)

	paymentMethod, err := domain.ParsePaymentMethod(method)
	if err != nil {
		return PaymentResult{}, e.fail(opPayOrder, err)
	}

	order, err := e.orders.Get(orderID)
	if err != nil {
		return PaymentResult{}, e.fail(opPayOrder, err)
	}
	if order.Status != domain.OrderStatusPlaced {
		return PaymentResult{}, e.fail(opPayOrder, &domain.InvalidOrderStateError{
			OrderID:  order.ID,
			Current:  order.Status,
			Expected: domain.OrderStatusPlaced,
		})
	}

	payment, err := e.payments.GetLatestByOrder(orderID)
	if err != nil {
		return PaymentResult{}, e.fail(opPayOrder, err)
	}

	now := time.Now().UTC()
	payment.Status = domain.PaymentStatusPaid
	payment.Method = paymentMethod
	payment.PaidAt = &now
	order.Status = domain.OrderStatusCompleted
	order.UpdatedAt = now

	if err := e.store.CompleteOrder(order, payment); err != nil {
		return PaymentResult{}, e.fail(opPayOrder, err)
	}
	order.Version++

	if e.metrics != nil {
		e.metrics.RecordOrderCompleted()
	}
	e.emitEvent(&order, kafka.EventTypeOrderCompleted, timelineEventOrderCompleted, map[string]interface{}{
		"method":       string(paymentMethod),
		"amount_minor": payment.AmountMinor,
		"paid_at":      now.Format(time.RFC3339Nano),
	})

	e.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"method":   paymentMethod,
	}).Info("order paid")

	return PaymentResult{Order: order, Payment: payment}, nil
}

// CancelOrder отменяет заказ в статусе PLACED: возвращает остатки по всем
// позициям (точная инверсия создания), переводит заказ в CANCELLED, а
// платёж — в REFUNDED, даже если оплата так и не состоялась.
func (e *Engine) CancelOrder(orderID string) (OrderDetails, error) {
	start := time.Now()
	defer e.observeDuration(opCancelOrder, start)

	order, err := e.orders.Get(orderID)
	if err != nil {
		return OrderDetails{}, e.fail(opCancelOrder, err)
	}
	if order.Status != domain.OrderStatusPlaced {
		return OrderDetails{}, e.fail(opCancelOrder, &domain.InvalidOrderStateError{
			OrderID:  order.ID,
			Current:  order.Status,
			Expected: domain.OrderStatusPlaced,
		})
	}

	payment, err := e.payments.GetLatestByOrder(orderID)
	if err != nil {
		return OrderDetails{}, e.fail(opCancelOrder, err)
	}

	now := time.Now().UTC()
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = now
	payment.Status = domain.PaymentStatusRefunded

	if err := e.store.CancelOrder(order, payment); err != nil {
		return OrderDetails{}, e.fail(opCancelOrder, err)
	}
	order.Version++

	var units int64
	for _, item := range order.Items {
		units += int64(item.Qty)
	}
	if e.metrics != nil {
		e.metrics.RecordOrderCancelled()
		e.metrics.RecordStockRestored(units)
	}
	e.emitEvent(&order, kafka.EventTypeOrderCancelled, timelineEventOrderCancelled, map[string]interface{}{
		"restored_units": units,
	})

	e.logger.WithField("order_id", order.ID).Info("order cancelled")

	customer, err := e.customers.Get(order.CustomerID)
	if err != nil {
		return OrderDetails{}, e.fail(opCancelOrder, err)
	}
	return OrderDetails{Order: order, Customer: customer, Items: order.Items}, nil
}

// RefundOrder помечает платёж отменённого заказа как REFUNDED.
// Обычно возврат уже выполнен cancel'ом; операция идемпотентна и при
// повторном вызове возвращает платёж без изменений и без ошибки.
func (e *Engine) RefundOrder(orderID string) (domain.Payment, error) {
	start := time.Now()
	defer e.observeDuration(opRefundOrder, start)

	order, err := e.orders.Get(orderID)
	if err != nil {
		return domain.Payment{}, e.fail(opRefundOrder, err)
	}
	if order.Status != domain.OrderStatusCancelled {
		return domain.Payment{}, e.fail(opRefundOrder, &domain.InvalidOrderStateError{
			OrderID:  order.ID,
			Current:  order.Status,
			Expected: domain.OrderStatusCancelled,
		})
	}

	payment, err := e.payments.GetLatestByOrder(orderID)
	if err != nil {
		return domain.Payment{}, e.fail(opRefundOrder, err)
	}
	if payment.Status == domain.PaymentStatusRefunded {
		return payment, nil
	}

	payment.Status = domain.PaymentStatusRefunded
	if err := e.store.RefundPayment(payment); err != nil {
		return domain.Payment{}, e.fail(opRefundOrder, err)
	}

	if e.metrics != nil {
		e.metrics.RecordPaymentRefunded()
	}
	e.emitEvent(&order, kafka.EventTypeOrderRefunded, timelineEventOrderRefunded, map[string]interface{}{
		"amount_minor": payment.AmountMinor,
	})

	e.logger.WithField("order_id", order.ID).Info("payment refunded")

	return payment, nil
}

// GetOrderDetails возвращает заказ вместе с владельцем и позициями.
// Для несуществующего заказа возвращает nil без ошибки.
func (e *Engine) GetOrderDetails(orderID string) (*OrderDetails, error) {
	order, err := e.orders.Get(orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, nil
		}
		return nil, err
	}

	customer, err := e.customers.Get(order.CustomerID)
	if err != nil {
		return nil, err
	}

	return &OrderDetails{Order: order, Customer: customer, Items: order.Items}, nil
}

// ListOrders возвращает заказы клиента, свежие первыми.
func (e *Engine) ListOrders(customerID string, limit int) ([]domain.Order, error) {
	return e.orders.ListByCustomer(customerID, limit)
}

// OrderTimeline возвращает события жизненного цикла заказа.
func (e *Engine) OrderTimeline(orderID string) ([]domain.TimelineEvent, error) {
	if e.timeline == nil {
		return nil, nil
	}
	return e.timeline.List(orderID)
}

// fail классифицирует отказ для метрик и возвращает ошибку без изменений.
func (e *Engine) fail(operation string, err error) error {
	if e.metrics != nil {
		e.metrics.RecordFailure(failureReason(err))
	}
	e.logger.WithError(err).WithField("operation", operation).Warn("workflow operation rejected")
	return err
}

func failureReason(err error) string {
	switch {
	case domain.IsValidation(err):
		return "validation"
	case domain.IsNotFound(err):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidOrderState):
		return "invalid_state"
	case domain.IsVersionConflict(err):
		return "version_conflict"
	case domain.IsDataAccess(err):
		return "data_access"
	default:
		return "other"
	}
}

func (e *Engine) observeDuration(operation string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordOperationDuration(operation, time.Since(start))
	}
}

// emitEvent кладёт событие в outbox и timeline. В outbox уходит wire-имя
// события (order.placed), в timeline — человекочитаемый тип (OrderPlaced).
// Сбои обоих каналов логируются, но не откатывают уже зафиксированную операцию.
func (e *Engine) emitEvent(order *domain.Order, wireType kafka.EventType, timelineType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	payload["status"] = string(order.Status)
	payload["ts"] = order.UpdatedAt.Format(time.RFC3339Nano)

	if e.outbox != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    wireType,
			}).Error("marshal event failed")
		} else {
			msg := domain.OutboxMessage{
				AggregateType: "order",
				AggregateID:   order.ID,
				EventType:     string(wireType),
				Payload:       data,
			}
			if _, err := e.outbox.Enqueue(msg); err != nil {
				e.logger.WithError(err).WithFields(log.Fields{
					"order_id": order.ID,
					"event":    wireType,
				}).Error("enqueue event failed")
			} else if e.metrics != nil {
				e.metrics.RecordOutboxEvent()
			}
		}
	}

	if e.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     timelineType,
			Occurred: order.UpdatedAt,
		}
		if err := e.timeline.Append(event); err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    timelineType,
			}).Warn("append timeline event failed")
		} else if e.metrics != nil {
			e.metrics.RecordTimelineEvent()
		}
	}
}
