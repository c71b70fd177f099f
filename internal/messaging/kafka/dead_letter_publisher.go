package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// DeadLetterPublisher отправляет недоставленные outbox-события в DLQ-топик.
// Каждое сообщение помечается retry-заголовками, чтобы реплей-инструменты
// видели источник и причину без разбора тела.
type DeadLetterPublisher struct {
	producer    *Producer
	topic       string
	sourceTopic string
	now         func() time.Time
}

// NewDeadLetterPublisher создаёт DLQ-паблишер. sourceTopic — топик,
// в который событие не удалось доставить.
func NewDeadLetterPublisher(producer *Producer, topic, sourceTopic string) *DeadLetterPublisher {
	if topic == "" {
		topic = TopicDeadLetterQueue
	}
	if sourceTopic == "" {
		sourceTopic = TopicOrderEvents
	}
	return &DeadLetterPublisher{
		producer:    producer,
		topic:       topic,
		sourceTopic: sourceTopic,
		now:         time.Now,
	}
}

func (p *DeadLetterPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dead letter publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	// Причина и число попыток уже лежат в теле; заголовки дублируют их
	// для consumer-ов, которые не читают payload.
	var meta struct {
		PublishError string `json:"publish_error"`
		Attempts     int    `json:"attempts"`
	}
	_ = json.Unmarshal(event.Payload, &meta)

	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderOriginalTopic), Value: []byte(p.sourceTopic)},
		{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(meta.Attempts))},
		{Key: []byte(HeaderFailedAt), Value: []byte(p.now().UTC().Format(time.RFC3339Nano))},
	}
	if meta.PublishError != "" {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte(HeaderErrorMessage),
			Value: []byte(meta.PublishError),
		})
	}

	return p.producer.Send(Message{
		Topic:   p.topic,
		Key:     key,
		Value:   event.Payload,
		Headers: headers,
	})
}

var _ domain.OutboxPublisher = (*DeadLetterPublisher)(nil)
