// Package audit streams authentication events to Kafka.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/server/models"
	"github.com/segmentio/kafka-go"
)

// Publisher emits audit events to an external stream.
type Publisher interface {
	Publish(ctx context.Context, entry *models.AuthLog) error
	Close() error
}

// Nop is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, *models.AuthLog) error { return nil }
func (Nop) Close() error                                   { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            3,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

// Publish writes entry as JSON keyed by user id, so events of one user keep
// their order within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, entry *models.AuthLog) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	key := "anonymous"
	if entry.UserID != nil {
		key = strconv.FormatInt(*entry.UserID, 10)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value, Time: entry.CreatedAt}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
