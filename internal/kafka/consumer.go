package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// StatsInvalidator drops cached per-event aggregates.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, eventID int64) error
}

// Consumer reads seat status events and drops the stats cache entry of the
// affected event. It backs up the direct invalidation done after each
// commit, which is best effort and may be lost.
type Consumer struct {
	reader MessageReader
	cache  StatsInvalidator
	log    *logger.Logger
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, cache StatsInvalidator, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(reader, cache, log)
}

func NewConsumerWithReader(reader MessageReader, cache StatsInvalidator, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Discard()
	}
	return &Consumer{reader: reader, cache: cache, log: log}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.LogKafka("CONSUME", "seats.status", "stats invalidation consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var event models.SeatStatusEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.log.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal seat status at %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err))
		return
	}
	if event.EventID <= 0 {
		return
	}
	if err := c.cache.Invalidate(ctx, event.EventID); err != nil {
		c.log.Warn("KAFKA", fmt.Sprintf("Invalidate stats for event %d failed: %v", event.EventID, err))
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
