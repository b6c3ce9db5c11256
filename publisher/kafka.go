package publisher

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	match "github.com/oxygenfuel/contract"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublishLog writes book logs to a Kafka topic, one message per log,
// keyed by the taker order id so a partition sees an order's events in order.
type KafkaPublishLog struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *zap.Logger
}

// NewKafkaPublishLog creates a publisher writing to topic on brokers.
func NewKafkaPublishLog(brokers []string, topic string, logger *zap.Logger) *KafkaPublishLog {
	return NewKafkaPublishLogWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}, logger)
}

// NewKafkaPublishLogWithWriter wraps an existing writer.
func NewKafkaPublishLogWithWriter(writer MessageWriter, logger *zap.Logger) *KafkaPublishLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublishLog{
		writer:  writer,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Publish blocks until the broker acknowledges the batch. Run it behind
// match.AsyncPublishLog to keep the engine off the network path.
func (p *KafkaPublishLog) Publish(logs ...*match.BookLog) {
	if len(logs) == 0 {
		return
	}

	msgs := make([]kafka.Message, 0, len(logs))
	for _, log := range logs {
		value, err := json.Marshal(log)
		if err != nil {
			p.logger.Error("failed to encode book log", zap.Uint64("seq_id", log.SequenceID), zap.Error(err))
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatUint(log.OrderID, 10)),
			Value: value,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("failed to publish book logs",
			zap.Uint64("first_seq_id", logs[0].SequenceID),
			zap.Int("count", len(msgs)),
			zap.Error(err),
		)
	}
}

func (p *KafkaPublishLog) Close() error {
	return p.writer.Close()
}
