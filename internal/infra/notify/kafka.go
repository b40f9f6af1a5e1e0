package notify

import (
	"context"
	"encoding/json"
	"time"

	"fulfillment/internal/domain/model"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher は通知をトピックへJSONで流す。
// キーは相関ID（注文ID）なので、同じ注文の通知は同じパーティションに乗る
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

type notificationEvent struct {
	ID            int64  `json:"id"`
	Audience      string `json:"audience"`
	RecipientID   int64  `json:"recipient_id,omitempty"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id"`
	CreatedAt     string `json:"created_at"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, n model.Notification) error {
	msg, err := encodeMessage(n)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func encodeMessage(n model.Notification) (kafka.Message, error) {
	data, err := json.Marshal(notificationEvent{
		ID:            n.ID,
		Audience:      string(n.Audience),
		RecipientID:   n.RecipientID,
		Message:       n.Message,
		CorrelationID: n.CorrelationID,
		CreatedAt:     n.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(n.CorrelationID),
		Value: data,
		Time:  time.Now().UTC(),
	}, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
