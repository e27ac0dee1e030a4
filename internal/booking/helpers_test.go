package booking_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ms-booking/internal/booking"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/database"
	"ms-booking/internal/models"
	seatdb "ms-booking/internal/seats/db"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishBookingEvent(ctx context.Context, event models.BookingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishSeatStatus(ctx context.Context, event models.SeatStatusEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newMockPublisher() *MockPublisher {
	p := &MockPublisher{}
	p.On("PublishBookingEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishSeatStatus", mock.Anything, mock.Anything).Return(nil).Maybe()
	return p
}

// publishedTypes lists the booking event types in publish order.
func (m *MockPublisher) publishedTypes() []string {
	var types []string
	for _, call := range m.Calls {
		if call.Method == "PublishBookingEvent" {
			types = append(types, call.Arguments.Get(1).(models.BookingEvent).Type)
		}
	}
	return types
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, eventID int64) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	bun     *bun.DB
	seats   *seatdb.DB
	uow     *bookingdb.UnitOfWork
	service *booking.Service
	pub     *MockPublisher
	clock   *fakeClock
	event   *models.Event
	seatIDs []int64
}

type fixtureOption func(*booking.Options)

// newFixture provisions one active event starting in a week with n seats
// priced 50.00 each.
func newFixture(t *testing.T, n int, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()

	bunDB := database.NewTestDB(t)
	seats := seatdb.New(bunDB)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	event := &models.Event{
		Name:      "Concert",
		StartsAt:  clock.Now().Add(7 * 24 * time.Hour),
		EndsAt:    clock.Now().Add(7*24*time.Hour + 3*time.Hour),
		Status:    models.EventStatusActive,
		Capacity:  n,
		BasePrice: 5000,
		CreatedAt: clock.Now(),
		UpdatedAt: clock.Now(),
	}
	require.NoError(t, seats.CreateEvent(ctx, event))

	rows := make([]models.Seat, n)
	for i := range rows {
		rows[i] = models.Seat{
			EventID: event.ID,
			Row:     "A",
			Section: models.DefaultSection,
			Number:  fmt.Sprintf("%03d", i+1),
			Price:   5000,
			Status:  models.SeatStatusAvailable,
		}
	}
	require.NoError(t, seats.CreateSeats(ctx, rows))

	ids := make([]int64, n)
	for i, s := range rows {
		ids[i] = s.ID
	}

	options := booking.Options{
		MaxSeatsPerBooking: 10,
		HoldTTL:            15 * time.Minute,
		Now:                clock.Now,
	}
	for _, o := range opts {
		o(&options)
	}

	uow := bookingdb.NewUnitOfWork(bunDB)
	pub := newMockPublisher()
	return &fixture{
		bun:     bunDB,
		seats:   seats,
		uow:     uow,
		service: booking.NewService(uow, pub, nil, nil, options),
		pub:     pub,
		clock:   clock,
		event:   event,
		seatIDs: ids,
	}
}

func (f *fixture) seat(t *testing.T, id int64) *models.Seat {
	t.Helper()
	s, err := f.seats.GetSeat(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (f *fixture) booking(t *testing.T, id string) *models.Booking {
	t.Helper()
	b, err := bookingdb.New(f.bun).GetBooking(context.Background(), id)
	require.NoError(t, err)
	tickets, err := bookingdb.New(f.bun).GetTickets(context.Background(), id)
	require.NoError(t, err)
	b.Tickets = tickets
	return b
}

// activeTicketCount counts tickets occupying a seat.
func (f *fixture) activeTicketCount(t *testing.T, seatID int64) int {
	t.Helper()
	n, err := f.bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("seat_id = ?", seatID).
		Where("status IN (?)", bun.In([]string{models.TicketStatusBooked, models.TicketStatusConfirmed, models.TicketStatusUsed})).
		Count(context.Background())
	require.NoError(t, err)
	return n
}
