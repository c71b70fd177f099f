package kafka

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func newTestProducer(t *testing.T) (*Producer, *mocks.SyncProducer) {
	t.Helper()

	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := &Producer{
		sync:   mockProducer,
		logger: log.WithField("component", "kafka-producer-test"),
	}
	return producer, mockProducer
}

func TestProducer_PublishEvent(t *testing.T) {
	producer, mockProducer := newTestProducer(t)

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded["event_type"] != string(EventTypeOrderPlaced) {
			t.Errorf("unexpected event_type %v", decoded["event_type"])
		}
		return nil
	})

	event := map[string]interface{}{
		"event_type": string(EventTypeOrderPlaced),
		"order_id":   "order-123",
		"status":     "PLACED",
	}
	if err := producer.PublishEvent(TopicOrderEvents, "order-123", event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	producer, mockProducer := newTestProducer(t)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := map[string]interface{}{"event_type": string(EventTypeOrderCancelled)}
	if err := producer.PublishEvent(TopicOrderEvents, "order-123", event); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_SendKeepsHeaders(t *testing.T) {
	producer, mockProducer := newTestProducer(t)

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicDeadLetterQueue {
			t.Errorf("unexpected topic %q", msg.Topic)
		}
		if len(msg.Headers) != 1 {
			t.Fatalf("expected 1 header, got %d", len(msg.Headers))
		}
		if string(msg.Headers[0].Key) != HeaderOriginalTopic || string(msg.Headers[0].Value) != TopicOrderEvents {
			t.Errorf("unexpected header %s=%s", msg.Headers[0].Key, msg.Headers[0].Value)
		}
		return nil
	})

	err := producer.Send(Message{
		Topic: TopicDeadLetterQueue,
		Key:   "order-123",
		Value: []byte(`{"status":"PLACED"}`),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderOriginalTopic), Value: []byte(TopicOrderEvents)},
		},
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}
