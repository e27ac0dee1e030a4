package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes booking lifecycle and seat status events. Messages
// are keyed by booking id or seat id, so events of one booking (or one
// seat) stay ordered within a partition.
type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return NewProducerWithWriter(writer, topics, log)
}

func NewProducerWithWriter(writer MessageWriter, topics config.TopicConfig, log *logger.Logger) *Producer {
	if log == nil {
		log = logger.Discard()
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// TopicFor maps a booking event type to its topic. Expiry is a kind of
// cancellation and shares the cancelled topic; the payload type tells
// them apart.
func (p *Producer) TopicFor(eventType string) (string, error) {
	switch eventType {
	case models.BookingEventReserved:
		return p.Topics.BookingReserved, nil
	case models.BookingEventConfirmed:
		return p.Topics.BookingConfirmed, nil
	case models.BookingEventCancelled, models.BookingEventExpired:
		return p.Topics.BookingCancelled, nil
	case models.TicketEventUsed:
		return p.Topics.TicketUsed, nil
	}
	return "", fmt.Errorf("no topic for event type %q", eventType)
}

func (p *Producer) PublishBookingEvent(ctx context.Context, event models.BookingEvent) error {
	topic, err := p.TopicFor(event.Type)
	if err != nil {
		return err
	}
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%s booking=%s", event.Type, event.BookingID))
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.BookingID),
		Value: msgBytes,
	})
}

// PublishSeatStatus writes one message per seat, keyed by seat id.
func (p *Producer) PublishSeatStatus(ctx context.Context, event models.SeatStatusEvent) error {
	msgs := make([]kafka.Message, 0, len(event.SeatIDs))
	for _, seatID := range event.SeatIDs {
		msgBytes, err := json.Marshal(models.NewSeatStatusEvent(event.EventID, []int64{seatID}, event.Status))
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.Topics.SeatStatus,
			Key:   []byte(strconv.FormatInt(seatID, 10)),
			Value: msgBytes,
		})
	}
	if len(msgs) == 0 {
		return nil
	}

	p.Logger.LogKafka("PUBLISH", p.Topics.SeatStatus, fmt.Sprintf("event=%d seats=%v status=%s", event.EventID, event.SeatIDs, event.Status))
	return p.Writer.WriteMessages(ctx, msgs...)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
