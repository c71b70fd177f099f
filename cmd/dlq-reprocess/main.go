// Команда dlq-reprocess возвращает события из retail.dlq обратно
// в основной топик заказов. По умолчанию работает в режиме dry-run:
// показывает кандидатов, ничего не публикуя.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
)

const (
	defaultMaxMessages = 100
	defaultIdleTimeout = 2 * time.Second
)

type options struct {
	brokers     []string
	dlqTopic    string
	replayTopic string
	maxMessages int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

// dlqRecord — тело сообщения в retail.dlq, как его пишет outbox worker.
type dlqRecord struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	Attempts      int             `json:"attempts"`
}

// requeueMessage — событие, восстановленное в формат основного топика.
type requeueMessage struct {
	topic string
	key   string
	value []byte
}

type brokerClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionReader interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionReader, error)
	Close() error
}

type requeueSink interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type consumerAdapter struct {
	consumer sarama.Consumer
}

func (a consumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionReader, error) {
	reader, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return reader, nil
}

func (a consumerAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

// openKafka подменяется в тестах.
var openKafka = func(opts options) (brokerClient, partitionSource, requeueSink, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(opts.brokers, consumerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	source := consumerAdapter{consumer: rawConsumer}

	// Producer нужен только в execute-режиме.
	if !opts.execute {
		return client, source, nil, nil
	}

	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Compression = sarama.CompressionSnappy
	producerConfig.Producer.Idempotent = true
	producerConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(opts.brokers, producerConfig)
	if err != nil {
		_ = source.Close()
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return client, source, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	opts, err := parseOptions()
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), opts); err != nil {
		fail("dlq reprocess failed: %v", err)
	}
}

func parseOptions() (options, error) {
	var (
		brokersRaw string
		opts       options
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	flag.StringVar(&opts.dlqTopic, "dlq-topic", kafka.TopicDeadLetterQueue, "dead letter topic to read from")
	flag.StringVar(&opts.replayTopic, "replay-topic", kafka.TopicOrderEvents, "topic to requeue events into")
	flag.IntVar(&opts.maxMessages, "max-messages", defaultMaxMessages, "max number of dlq messages to scan")
	flag.BoolVar(&opts.execute, "execute", false, "requeue events; default is dry-run")
	flag.BoolVar(&opts.fromNewest, "from-newest", false, "scan latest messages first (bounded by max-messages)")
	flag.DurationVar(&opts.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("KAFKA_BROKERS")
	}

	opts.brokers = splitBrokers(brokersRaw)
	if len(opts.brokers) == 0 {
		return options{}, fmt.Errorf("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	}
	if strings.TrimSpace(opts.dlqTopic) == "" {
		return options{}, fmt.Errorf("dlq-topic is required")
	}
	if strings.TrimSpace(opts.replayTopic) == "" {
		return options{}, fmt.Errorf("replay-topic is required")
	}
	if opts.maxMessages <= 0 {
		return options{}, fmt.Errorf("max-messages must be > 0")
	}
	if opts.idleTimeout <= 0 {
		return options{}, fmt.Errorf("idle-timeout must be > 0")
	}

	return opts, nil
}

func splitBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

func run(ctx context.Context, opts options) error {
	log.WithFields(log.Fields{
		"dlq_topic":    opts.dlqTopic,
		"replay_topic": opts.replayTopic,
		"max_messages": opts.maxMessages,
		"execute":      opts.execute,
		"from_newest":  opts.fromNewest,
	}).Info("starting dlq reprocess")

	client, source, sink, err := openKafka(opts)
	if err != nil {
		return err
	}
	defer func() {
		if sink != nil {
			_ = sink.Close()
		}
		if source != nil {
			_ = source.Close()
		}
		if client != nil {
			_ = client.Close()
		}
	}()

	return reprocess(ctx, opts, client, source, sink)
}

type scanTotals struct {
	scanned  int
	requeued int
	skipped  int
}

func (t *scanTotals) add(other scanTotals) {
	t.scanned += other.scanned
	t.requeued += other.requeued
	t.skipped += other.skipped
}

func reprocess(ctx context.Context, opts options, client brokerClient, source partitionSource, sink requeueSink) error {
	if client == nil || source == nil {
		return fmt.Errorf("kafka client and consumer are required")
	}
	if opts.execute && sink == nil {
		return fmt.Errorf("producer is required in execute mode")
	}

	partitions, err := client.Partitions(opts.dlqTopic)
	if err != nil {
		return fmt.Errorf("get partitions for topic %s: %w", opts.dlqTopic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", opts.dlqTopic).Warn("dlq topic has no partitions")
		return nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	var totals scanTotals
	for _, partition := range partitions {
		if totals.scanned >= opts.maxMessages {
			break
		}

		partial, err := scanPartition(ctx, opts, client, source, sink, partition, opts.maxMessages-totals.scanned)
		if err != nil {
			return err
		}
		totals.add(partial)
	}

	mode := "dry-run"
	if opts.execute {
		mode = "execute"
	}

	log.WithFields(log.Fields{
		"mode":     mode,
		"scanned":  totals.scanned,
		"requeued": totals.requeued,
		"skipped":  totals.skipped,
	}).Info("dlq reprocess finished")

	return nil
}

func scanPartition(
	ctx context.Context,
	opts options,
	client brokerClient,
	source partitionSource,
	sink requeueSink,
	partition int32,
	budget int,
) (scanTotals, error) {
	var totals scanTotals
	if budget <= 0 {
		return totals, nil
	}

	oldest, err := client.GetOffset(opts.dlqTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return totals, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(opts.dlqTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return totals, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return totals, nil
	}

	startOffset := oldest
	if opts.fromNewest {
		startOffset = newest - int64(budget)
		if startOffset < oldest {
			startOffset = oldest
		}
	}

	reader, err := source.ConsumePartition(opts.dlqTopic, partition, startOffset)
	if err != nil {
		return totals, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = reader.Close() }()

	endOffset := newest
	idleTimer := time.NewTimer(opts.idleTimeout)
	defer idleTimer.Stop()

	for totals.scanned < budget {
		select {
		case <-ctx.Done():
			return totals, ctx.Err()
		case err := <-reader.Errors():
			if err != nil {
				return totals, fmt.Errorf("partition %d consumer error: %w", partition, err)
			}
		case msg, ok := <-reader.Messages():
			if !ok || msg == nil {
				return totals, nil
			}

			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(opts.idleTimeout)

			if msg.Offset >= endOffset {
				return totals, nil
			}
			totals.scanned++

			requeue, err := restoreEvent(msg, opts.replayTopic)
			if err != nil {
				totals.skipped++
				log.WithError(err).WithFields(log.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("skip malformed dlq message")
				continue
			}

			if opts.execute {
				if err := requeueEvent(sink, requeue); err != nil {
					return totals, fmt.Errorf("requeue event: %w", err)
				}
			} else {
				log.WithFields(log.Fields{
					"partition":    msg.Partition,
					"offset":       msg.Offset,
					"replay_topic": requeue.topic,
					"key":          requeue.key,
				}).Info("dlq requeue candidate")
			}
			totals.requeued++

			if msg.Offset+1 >= endOffset {
				return totals, nil
			}
		case <-idleTimer.C:
			return totals, nil
		}
	}

	return totals, nil
}

func requeueEvent(sink requeueSink, msg requeueMessage) error {
	if sink == nil {
		return fmt.Errorf("producer is nil")
	}

	_, _, err := sink.SendMessage(&sarama.ProducerMessage{
		Topic:     msg.topic,
		Key:       sarama.StringEncoder(msg.key),
		Value:     sarama.ByteEncoder(msg.value),
		Timestamp: time.Now().UTC(),
	})
	return err
}

// restoreEvent восстанавливает из DLQ-записи событие в формате основного
// топика. Топик берётся из заголовка x-original-topic, если worker его
// проставил, иначе из флага -replay-topic.
func restoreEvent(msg *sarama.ConsumerMessage, fallbackTopic string) (requeueMessage, error) {
	var record dlqRecord
	if err := json.Unmarshal(msg.Value, &record); err != nil {
		return requeueMessage{}, fmt.Errorf("decode dlq record: %w", err)
	}
	if record.OutboxID == "" && record.EventType == "" {
		return requeueMessage{}, fmt.Errorf("dlq record has no outbox_id or event_type")
	}
	if len(record.Payload) == 0 {
		return requeueMessage{}, fmt.Errorf("dlq record does not contain original event payload")
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            record.OutboxID,
		AggregateType: record.AggregateType,
		AggregateID:   record.AggregateID,
		EventType:     record.EventType,
		Payload:       record.Payload,
		PublishedAt:   time.Now().UTC(),
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return requeueMessage{}, fmt.Errorf("encode replay envelope: %w", err)
	}

	topic := fallbackTopic
	for _, header := range msg.Headers {
		if header != nil && string(header.Key) == kafka.HeaderOriginalTopic && len(header.Value) > 0 {
			topic = string(header.Value)
		}
	}

	key := record.AggregateID
	if key == "" {
		key = record.OutboxID
	}

	return requeueMessage{
		topic: topic,
		key:   key,
		value: encoded,
	}, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
