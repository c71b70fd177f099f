package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics содержит метрики жизненного цикла заказов.
type WorkflowMetrics struct {
	// Счётчики переходов заказа
	ordersPlaced     prometheus.Counter
	ordersCompleted  prometheus.Counter
	ordersCancelled  prometheus.Counter
	paymentsRefunded prometheus.Counter

	// Счётчики отказов по причинам
	workflowFailures *prometheus.CounterVec

	// Гистограмма времени выполнения операций workflow
	operationDuration *prometheus.HistogramVec

	// Движение стока в штуках
	stockReserved prometheus.Counter
	stockRestored prometheus.Counter

	// Счётчики событий timeline/outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewWorkflowMetrics создаёт новый экземпляр метрик workflow.
func NewWorkflowMetrics() *WorkflowMetrics {
	return NewWorkflowMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWorkflowMetricsWithRegisterer создаёт метрики в заданном registerer.
// Используется тестами для изоляции от default registry.
func NewWorkflowMetricsWithRegisterer(registerer prometheus.Registerer) *WorkflowMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &WorkflowMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_orders_placed_total",
			Help: "Total number of orders successfully placed",
		}),
		ordersCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_orders_completed_total",
			Help: "Total number of orders paid and completed",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		paymentsRefunded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_payments_refunded_total",
			Help: "Total number of payments marked refunded",
		}),
		workflowFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "retail_workflow_failures_total",
			Help: "Total number of rejected workflow operations grouped by reason",
		}, []string{"reason"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "retail_workflow_operation_duration_seconds",
			Help:    "Duration of workflow operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		stockReserved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_stock_reserved_units_total",
			Help: "Total units of stock decremented by order placement",
		}),
		stockRestored: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_stock_restored_units_total",
			Help: "Total units of stock restored by order cancellation",
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderPlaced увеличивает счётчик размещённых заказов.
func (m *WorkflowMetrics) RecordOrderPlaced() {
	m.ordersPlaced.Inc()
}

// RecordOrderCompleted увеличивает счётчик оплаченных заказов.
func (m *WorkflowMetrics) RecordOrderCompleted() {
	m.ordersCompleted.Inc()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *WorkflowMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
}

// RecordPaymentRefunded увеличивает счётчик возвратов.
func (m *WorkflowMetrics) RecordPaymentRefunded() {
	m.paymentsRefunded.Inc()
}

// RecordFailure увеличивает счётчик отказов с указанием причины.
func (m *WorkflowMetrics) RecordFailure(reason string) {
	m.workflowFailures.WithLabelValues(reason).Inc()
}

// RecordOperationDuration записывает время выполнения операции workflow.
func (m *WorkflowMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStockReserved учитывает списанные при размещении единицы стока.
func (m *WorkflowMetrics) RecordStockReserved(units int64) {
	m.stockReserved.Add(float64(units))
}

// RecordStockRestored учитывает возвращённые при отмене единицы стока.
func (m *WorkflowMetrics) RecordStockRestored(units int64) {
	m.stockRestored.Add(float64(units))
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *WorkflowMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *WorkflowMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
