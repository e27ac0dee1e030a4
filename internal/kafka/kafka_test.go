package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ms-booking/internal/config"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var topics = config.TopicConfig{
	BookingReserved:  "booking.reserved",
	BookingConfirmed: "booking.confirmed",
	BookingCancelled: "booking.cancelled",
	TicketUsed:       "ticket.used",
	SeatStatus:       "seats.status",
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishBookingEvent_Topics(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, topics, nil)
	b := &models.Booking{ID: "b-1", UserID: "u-1", EventID: 9, TotalAmount: 5000, Status: models.BookingStatusCancelled,
		Tickets: []models.Ticket{{ID: "t-1", SeatID: 3}}}

	for eventType, topic := range map[string]string{
		models.BookingEventReserved:  "booking.reserved",
		models.BookingEventConfirmed: "booking.confirmed",
		models.BookingEventCancelled: "booking.cancelled",
		models.BookingEventExpired:   "booking.cancelled",
		models.TicketEventUsed:       "ticket.used",
	} {
		w.msgs = nil
		require.NoError(t, p.PublishBookingEvent(context.Background(), models.NewBookingEvent(eventType, b, time.Now())))
		require.Len(t, w.msgs, 1)
		assert.Equal(t, topic, w.msgs[0].Topic, eventType)
		assert.Equal(t, "b-1", string(w.msgs[0].Key))

		var got models.BookingEvent
		require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
		assert.Equal(t, eventType, got.Type)
		assert.Equal(t, []int64{3}, got.SeatIDs)
		assert.Equal(t, models.Money(5000), got.TotalAmount)
	}

	assert.Error(t, p.PublishBookingEvent(context.Background(), models.BookingEvent{Type: "booking.unknown"}))
}

func TestPublishSeatStatus_OneMessagePerSeat(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, topics, nil)

	require.NoError(t, p.PublishSeatStatus(context.Background(), models.NewSeatStatusEvent(4, []int64{10, 11}, models.SeatStatusSold)))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "10", string(w.msgs[0].Key))
	assert.Equal(t, "11", string(w.msgs[1].Key))

	var got models.SeatStatusEvent
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &got))
	assert.Equal(t, models.NewSeatStatusEvent(4, []int64{11}, models.SeatStatusSold), got)

	require.NoError(t, p.PublishSeatStatus(context.Background(), models.NewSeatStatusEvent(4, nil, models.SeatStatusSold)))
	assert.Len(t, w.msgs, 2)
}

func TestPublish_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, topics, nil)
	err := p.PublishSeatStatus(context.Background(), models.NewSeatStatusEvent(1, []int64{1}, models.SeatStatusAvailable))
	assert.Error(t, err)
}

type fakeReader struct {
	msgs   chan kafka.Message
	closed chan struct{}
}

func newFakeReader() *fakeReader {
	return &fakeReader{msgs: make(chan kafka.Message, 10), closed: make(chan struct{})}
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error {
	close(r.closed)
	return nil
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, eventID int64) error {
	return m.Called(ctx, eventID).Error(0)
}

func TestConsumer_InvalidatesStats(t *testing.T) {
	reader := newFakeReader()
	cache := &MockInvalidator{}
	done := make(chan struct{})
	cache.On("Invalidate", mock.Anything, int64(7)).Return(nil).Once().Run(func(mock.Arguments) { close(done) })

	value, err := json.Marshal(models.NewSeatStatusEvent(7, []int64{1}, models.SeatStatusSold))
	require.NoError(t, err)
	reader.msgs <- kafka.Message{Topic: "seats.status", Value: []byte("{not json")}
	reader.msgs <- kafka.Message{Topic: "seats.status", Value: value}

	ctx, cancel := context.WithCancel(context.Background())
	c := NewConsumerWithReader(reader, cache, nil)
	result := make(chan error, 1)
	go func() { result <- c.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation not called")
	}
	cancel()
	assert.NoError(t, <-result)
	require.NoError(t, c.Close())
	cache.AssertExpectations(t)
}
