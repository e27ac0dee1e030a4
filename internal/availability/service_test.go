package availability_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ms-booking/internal/availability"
	"ms-booking/internal/booking"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/database"
	"ms-booking/internal/models"
	seatdb "ms-booking/internal/seats/db"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type env struct {
	db      *bun.DB
	booking *booking.Service
	eventID int64
	seatIDs []int64
}

// newEnv provisions an event whose seats are laid out out of insertion
// order, so listing has to sort them.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db := database.NewTestDB(t)
	seats := seatdb.New(db)

	now := time.Now().UTC()
	event := &models.Event{Name: "Stats", StartsAt: now.Add(48 * time.Hour), EndsAt: now.Add(50 * time.Hour),
		Status: models.EventStatusActive, Capacity: 4, BasePrice: 5000, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, seats.CreateEvent(ctx, event))

	layout := []struct{ row, number string }{{"B", "003"}, {"A", "002"}, {"A", "001"}, {"AA", "004"}}
	rows := make([]models.Seat, len(layout))
	for i, l := range layout {
		rows[i] = models.Seat{EventID: event.ID, Row: l.row, Section: models.DefaultSection, Number: l.number,
			Price: 5000, Status: models.SeatStatusAvailable}
	}
	require.NoError(t, seats.CreateSeats(ctx, rows))

	ids := make([]int64, len(rows))
	for i, s := range rows {
		ids[i] = s.ID
	}
	svc := booking.NewService(bookingdb.NewUnitOfWork(db), nil, nil, nil, booking.Options{})
	return &env{db: db, booking: svc, eventID: event.ID, seatIDs: ids}
}

func (e *env) reserve(t *testing.T, user string, confirm bool, seatIDs ...int64) *models.Booking {
	t.Helper()
	b, err := e.booking.Reserve(context.Background(), booking.ReserveRequest{UserID: user, EventID: e.eventID, SeatIDs: seatIDs, Confirm: confirm})
	require.NoError(t, err)
	return b
}

func TestCountsAndRevenue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := availability.NewService(e.db, nil, nil)

	e.reserve(t, "user-a", true, e.seatIDs[0], e.seatIDs[1])
	e.reserve(t, "user-b", false, e.seatIDs[2])

	available, err := svc.AvailableCount(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, available)

	sold, err := svc.SoldCount(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 3, sold)

	revenue, err := svc.Revenue(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(10000), revenue, "only confirmed bookings count")

	total, err := svc.BookingCount(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	confirmed, err := svc.ConfirmedBookingCount(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)

	soldOut, err := svc.IsSoldOut(ctx, e.eventID)
	require.NoError(t, err)
	assert.False(t, soldOut)

	e.reserve(t, "user-c", false, e.seatIDs[3])
	soldOut, err = svc.IsSoldOut(ctx, e.eventID)
	require.NoError(t, err)
	assert.True(t, soldOut)
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	svc := availability.NewService(e.db, nil, nil)
	b := e.reserve(t, "user-a", true, e.seatIDs[0])
	e.reserve(t, "user-b", false, e.seatIDs[1])

	stats, err := svc.Stats(context.Background(), e.eventID)
	require.NoError(t, err)
	assert.Equal(t, &models.EventStats{
		EventID:           e.eventID,
		TotalSeats:        4,
		AvailableSeats:    2,
		SoldSeats:         2,
		TotalRevenue:      b.TotalAmount,
		TotalBookings:     2,
		ConfirmedBookings: 1,
	}, stats)
}

func TestUnknownEvent(t *testing.T) {
	e := newEnv(t)
	svc := availability.NewService(e.db, nil, nil)

	_, err := svc.Stats(context.Background(), e.eventID+1)
	assert.ErrorIs(t, err, seatdb.ErrEventNotFound)
	_, err = svc.ListSeats(context.Background(), e.eventID+1)
	assert.ErrorIs(t, err, seatdb.ErrEventNotFound)
}

func TestListSeats_OrderedByRowThenNumber(t *testing.T) {
	e := newEnv(t)
	svc := availability.NewService(e.db, nil, nil)
	e.reserve(t, "user-a", false, e.seatIDs[1])

	seats, err := svc.ListSeats(context.Background(), e.eventID)
	require.NoError(t, err)
	var labels []string
	for _, s := range seats {
		labels = append(labels, s.Label())
	}
	assert.Equal(t, []string{"A-001", "A-002", "B-003", "AA-004"}, labels)

	available, err := svc.ListAvailableSeats(context.Background(), e.eventID)
	require.NoError(t, err)
	labels = labels[:0]
	for _, s := range available {
		labels = append(labels, s.Label())
	}
	assert.Equal(t, []string{"A-001", "B-003", "AA-004"}, labels)
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestStats_CachedAndInvalidated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client, mr := setupRedis(t)
	cache := availability.NewCache(client, time.Minute, nil)
	svc := availability.NewService(e.db, cache, nil)

	first, err := svc.Stats(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 4, first.AvailableSeats)
	key := fmt.Sprintf("event_stats:%d", e.eventID)
	assert.True(t, mr.Exists(key))

	// Writes behind the cache's back are not seen until invalidation.
	e.reserve(t, "user-a", true, e.seatIDs[0])
	cached, err := svc.Stats(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 4, cached.AvailableSeats)

	require.NoError(t, cache.Invalidate(ctx, e.eventID))
	assert.False(t, mr.Exists(key))

	fresh, err := svc.Stats(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.AvailableSeats)
	assert.Equal(t, models.Money(5000), fresh.TotalRevenue)
}

func TestStats_BookingServiceInvalidates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client, _ := setupRedis(t)
	cache := availability.NewCache(client, time.Minute, nil)
	svc := availability.NewService(e.db, cache, nil)
	bookings := booking.NewService(bookingdb.NewUnitOfWork(e.db), nil, cache, nil, booking.Options{})

	_, err := svc.Stats(ctx, e.eventID)
	require.NoError(t, err)

	_, err = bookings.QuickBook(ctx, "user-a", e.eventID, e.seatIDs[0])
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SoldSeats)
}

func TestStats_CacheExpires(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client, mr := setupRedis(t)
	svc := availability.NewService(e.db, availability.NewCache(client, 5*time.Second, nil), nil)

	_, err := svc.Stats(ctx, e.eventID)
	require.NoError(t, err)
	e.reserve(t, "user-a", false, e.seatIDs[0])

	mr.FastForward(6 * time.Second)
	stats, err := svc.Stats(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SoldSeats)
}

func TestStats_RedisDownFallsBackToDatabase(t *testing.T) {
	e := newEnv(t)
	client, mr := setupRedis(t)
	svc := availability.NewService(e.db, availability.NewCache(client, time.Minute, nil), nil)
	mr.Close()

	stats, err := svc.Stats(context.Background(), e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalSeats)
}
