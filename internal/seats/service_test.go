package seats_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-booking/internal/booking"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/database"
	"ms-booking/internal/models"
	"ms-booking/internal/seats"
	seatdb "ms-booking/internal/seats/db"
	"ms-booking/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, eventID int64) error {
	return m.Called(ctx, eventID).Error(0)
}

func validRequest(maxSeats int) seats.CreateEventRequest {
	start := time.Now().Add(72 * time.Hour).UTC()
	return seats.CreateEventRequest{
		Name:     "Jazz Night",
		Location: "Main Hall",
		StartsAt: start,
		EndsAt:   start.Add(3 * time.Hour),
		MaxSeats: maxSeats,
		Price:    models.Cents(4250),
	}
}

func newService(t *testing.T) (*seats.Service, *bun.DB, *MockInvalidator) {
	t.Helper()
	db := database.NewTestDB(t)
	cache := &MockInvalidator{}
	cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Maybe()
	return seats.NewService(db, cache, nil), db, cache
}

func TestRowLabelAndNumber(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "A"}, {10, "A"}, {11, "B"}, {260, "Z"}, {261, "AA"}, {270, "AA"}, {271, "AB"}, {520, "AZ"}, {521, "BA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, seats.RowLabel(tt.n), "seat %d", tt.n)
	}
	assert.Equal(t, "007", seats.SeatNumber(7))
	assert.Equal(t, "1234", seats.SeatNumber(1234))
}

func TestCreateEvent_GeneratesSeats(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, validRequest(25))
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.Equal(t, models.EventStatusActive, event.Status)
	assert.Equal(t, 25, event.Capacity)

	list, err := seatdb.New(db).ListSeats(ctx, event.ID, "")
	require.NoError(t, err)
	require.Len(t, list, 25)

	assert.Equal(t, "A-001", list[0].Label())
	assert.Equal(t, "A-010", list[9].Label())
	assert.Equal(t, "B-011", list[10].Label())
	assert.Equal(t, "C-025", list[24].Label())
	for _, s := range list {
		assert.Equal(t, models.SeatStatusAvailable, s.Status)
		assert.Equal(t, models.DefaultSection, s.Section)
		assert.Equal(t, models.Money(4250), s.Price)
		assert.Empty(t, s.HolderID)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	svc, _, _ := newService(t)

	bad := validRequest(10)
	bad.EndsAt = bad.StartsAt.Add(-time.Hour)
	bad.MaxSeats = 0
	_, err := svc.CreateEvent(context.Background(), bad)
	require.ErrorIs(t, err, seats.ErrInvalidEvent)

	var ve *validation.RequestValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 2)

	bad = validRequest(10)
	bad.Status = "archived"
	_, err = svc.CreateEvent(context.Background(), bad)
	assert.ErrorIs(t, err, seats.ErrInvalidEvent)
}

func TestUpdateEventStatus(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	event, err := svc.CreateEvent(ctx, validRequest(1))
	require.NoError(t, err)

	require.NoError(t, svc.UpdateEventStatus(ctx, event.ID, models.EventStatusInactive))
	got, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusInactive, got.Status)

	assert.ErrorIs(t, svc.UpdateEventStatus(ctx, event.ID, "paused"), seats.ErrInvalidEvent)
	assert.ErrorIs(t, svc.UpdateEventStatus(ctx, event.ID+1, models.EventStatusActive), seatdb.ErrEventNotFound)
}

func TestUpdateSeatPrice(t *testing.T) {
	svc, db, cache := newService(t)
	ctx := context.Background()
	event, err := svc.CreateEvent(ctx, validRequest(1))
	require.NoError(t, err)
	list, err := seatdb.New(db).ListSeats(ctx, event.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateSeatPrice(ctx, list[0].ID, 9900))
	seat, err := seatdb.New(db).GetSeat(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(9900), seat.Price)
	cache.AssertCalled(t, "Invalidate", mock.Anything, event.ID)

	assert.ErrorIs(t, svc.UpdateSeatPrice(ctx, list[0].ID, -1), seats.ErrInvalidEvent)
	assert.ErrorIs(t, svc.UpdateSeatPrice(ctx, list[0].ID+100, 100), seatdb.ErrSeatNotFound)
}

func TestDeleteSeat(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	event, err := svc.CreateEvent(ctx, validRequest(3))
	require.NoError(t, err)
	list, err := seatdb.New(db).ListSeats(ctx, event.ID, "")
	require.NoError(t, err)

	bookings := booking.NewService(bookingdb.NewUnitOfWork(db), nil, nil, nil, booking.Options{})
	sold, err := bookings.QuickBook(ctx, "user-a", event.ID, list[0].ID)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteSeat(ctx, list[0].ID), seats.ErrSeatSold)

	// A cancelled ticket still references the seat.
	_, err = bookings.Cancel(ctx, sold.ID, "user-a")
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteSeat(ctx, list[0].ID), seats.ErrSeatInUse)

	require.NoError(t, svc.DeleteSeat(ctx, list[1].ID))
	_, err = seatdb.New(db).GetSeat(ctx, list[1].ID)
	assert.ErrorIs(t, err, seatdb.ErrSeatNotFound)

	// Capacity follows the seat count; refused deletes left it alone.
	got, err := seatdb.New(db).GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Capacity)
	remaining, err := seatdb.New(db).ListSeats(ctx, event.ID, "")
	require.NoError(t, err)
	assert.Len(t, remaining, got.Capacity)

	assert.ErrorIs(t, svc.DeleteSeat(ctx, list[1].ID), seatdb.ErrSeatNotFound)
}
