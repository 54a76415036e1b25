package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type notificationEvent struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	EmittedAt time.Time `json:"emitted_at"`
}

// KafkaNotifier publishes notification events to a Kafka topic keyed by user
// ID. Delivery errors are logged from the producer's error channel; they are
// never surfaced to the request that triggered the notification.
type KafkaNotifier struct {
	producer sarama.AsyncProducer
	topic    string
	log      *zap.Logger
}

func NewKafkaNotifier(brokers []string, topic string, log *zap.Logger) (*KafkaNotifier, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 500 * time.Millisecond
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	n := &KafkaNotifier{producer: producer, topic: topic, log: log}
	go n.drainErrors()
	return n, nil
}

func (n *KafkaNotifier) Notify(_ context.Context, userID uuid.UUID, message string) {
	payload, err := json.Marshal(notificationEvent{
		UserID:    userID.String(),
		Message:   message,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		n.log.Error("failed to encode notification event", zap.Error(err))
		return
	}

	n.producer.Input() <- &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(userID.String()),
		Value: sarama.ByteEncoder(payload),
	}
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}

func (n *KafkaNotifier) drainErrors() {
	for err := range n.producer.Errors() {
		n.log.Error("notification publish failed", zap.Error(err))
	}
}
