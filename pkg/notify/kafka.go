package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/vanguard-health/pulse/pkg/common/logger"
)

// CodeIssuedEvent is the payload published for every challenge. Downstream
// consumers (SMS gateway, pager bridge) fan it out to the clinician.
type CodeIssuedEvent struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
}

// KafkaChannel publishes code-issued events to a delivery topic.
type KafkaChannel struct {
	writer *kafka.Writer
}

func NewKafkaChannel(brokers []string, topic string) *KafkaChannel {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaChannel{writer: writer}
}

func (c *KafkaChannel) DeliverCode(ctx context.Context, recipient, code string) error {
	event := CodeIssuedEvent{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Code:      code,
		IssuedAt:  time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal code event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.ID),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("otp.issued")},
		},
	}

	if err := c.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Error("Failed to publish code event")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"event_id": event.ID,
		"topic":    c.writer.Topic,
	}).Info("Code event published")

	return nil
}

func (c *KafkaChannel) Close() error {
	return c.writer.Close()
}
