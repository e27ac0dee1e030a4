package sse_test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/sse"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "sse-test-secret"

func TestEmitter_SubscribeAndUnsubscribe(t *testing.T) {
	e := sse.NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	seatsCh := e.SubscribeToSeats(ctx, 1)
	bookingsCh := e.SubscribeToBookings(ctx, 1)
	assert.Equal(t, 1, e.SeatClientCount(1))
	assert.Equal(t, 1, e.BookingClientCount(1))

	require.NoError(t, e.PublishSeatStatus(ctx, models.NewSeatStatusEvent(1, []int64{5}, models.SeatStatusSold)))
	require.NoError(t, e.PublishSeatStatus(ctx, models.NewSeatStatusEvent(2, []int64{6}, models.SeatStatusSold)))
	require.NoError(t, e.PublishBookingEvent(ctx, models.BookingEvent{Type: models.BookingEventReserved, EventID: 1, BookingID: "b"}))

	msg := <-seatsCh
	assert.Equal(t, "seats", msg.Name)
	assert.Equal(t, []int64{5}, msg.Data.(models.SeatStatusEvent).SeatIDs)
	assert.Len(t, seatsCh, 0, "other events are not delivered")

	msg = <-bookingsCh
	assert.Equal(t, "booking", msg.Name)

	cancel()
	require.Eventually(t, func() bool {
		return e.SeatClientCount(1) == 0 && e.BookingClientCount(1) == 0
	}, time.Second, 10*time.Millisecond)
	_, open := <-seatsCh
	assert.False(t, open)
}

func TestEmitter_SlowClientDoesNotBlock(t *testing.T) {
	e := sse.NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := e.SubscribeToSeats(ctx, 3)

	for i := 0; i < 50; i++ {
		require.NoError(t, e.PublishSeatStatus(ctx, models.NewSeatStatusEvent(3, []int64{int64(i)}, models.SeatStatusAvailable)))
	}
	assert.Equal(t, cap(ch), len(ch))
}

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return name, data
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func newServer(t *testing.T) (*httptest.Server, *sse.BookingEventEmitter) {
	t.Helper()
	emitter := sse.NewBookingEventEmitter()
	r := chi.NewRouter()
	sse.NewHandler(emitter, nil).RegisterRoutes(r, auth.Middleware(auth.NewHS256Verifier(secret), nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, emitter
}

func TestSeatStream(t *testing.T) {
	srv, emitter := newServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events/7/seats/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	body := bufio.NewReader(resp.Body)
	name, data := readEvent(t, body)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, `"event_id":7`)

	require.NoError(t, emitter.PublishSeatStatus(ctx, models.NewSeatStatusEvent(7, []int64{42}, models.SeatStatusSold)))
	name, data = readEvent(t, body)
	assert.Equal(t, "seats", name)
	assert.JSONEq(t, `{"event_id":7,"seat_ids":[42],"status":"sold"}`, data)
}

func TestBookingStream_RequiresAdmin(t *testing.T) {
	srv, emitter := newServer(t)
	path := srv.URL + "/api/events/7/bookings/stream"

	resp, err := http.Get(path)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for _, tc := range []struct {
		roles []string
		code  int
	}{
		{[]string{auth.RoleUser}, http.StatusForbidden},
		{[]string{auth.RoleAdmin}, http.StatusOK},
	} {
		tok, err := auth.IssueToken(secret, "ops", tc.roles, time.Hour)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, tc.code, resp.StatusCode, fmt.Sprint(tc.roles))

		if tc.code == http.StatusOK {
			body := bufio.NewReader(resp.Body)
			name, _ := readEvent(t, body)
			require.Equal(t, "connected", name)
			require.NoError(t, emitter.PublishBookingEvent(ctx, models.BookingEvent{Type: models.BookingEventConfirmed, EventID: 7, BookingID: "bk-1"}))
			name, data := readEvent(t, body)
			assert.Equal(t, "booking", name)
			assert.Contains(t, data, `"booking_id":"bk-1"`)
		}
		resp.Body.Close()
		cancel()
	}
}

func TestStream_InvalidEventID(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/api/events/abc/seats/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStream_WarnsWhenDeadlineCannotBeCleared(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Output: &buf, NoColor: true})
	require.NoError(t, err)

	r := chi.NewRouter()
	sse.NewHandler(sse.NewBookingEventEmitter(), log).RegisterRoutes(r, auth.Middleware(auth.NewHS256Verifier(secret), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The recorder flushes but has no write deadline to clear.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/4/seats/stream", nil).WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: connected")
	assert.Contains(t, buf.String(), "Cannot clear write deadline on /api/events/4/seats/stream")
}
