package kafka

// EventType — тип события жизненного цикла заказа в wire-формате.
type EventType string

const (
	EventTypeOrderPlaced    EventType = "order.placed"
	EventTypeOrderCompleted EventType = "order.completed"
	EventTypeOrderCancelled EventType = "order.cancelled"
	EventTypeOrderRefunded  EventType = "order.refunded"
)

// Топики сервиса.
const (
	TopicOrderEvents     = "retail.order.events"
	TopicDeadLetterQueue = "retail.dlq"
)

// Заголовки, которыми помечаются сообщения в DLQ.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)
