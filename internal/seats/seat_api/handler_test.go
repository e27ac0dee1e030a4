package seat_api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/database"
	"ms-booking/internal/models"
	"ms-booking/internal/seats"
	seatdb "ms-booking/internal/seats/db"
	"ms-booking/internal/seats/seat_api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const secret = "admin-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setup(t *testing.T) (http.Handler, *bun.DB) {
	t.Helper()
	db := database.NewTestDB(t)
	r := chi.NewRouter()
	seat_api.NewHandler(seats.NewService(db, nil, nil), nil).
		RegisterRoutes(r, auth.Middleware(auth.NewHS256Verifier(secret), nil))
	return r, db
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	tok, err := auth.IssueToken(secret, "operator", roles, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, h http.Handler, method, path, tok string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func eventBody(maxSeats int) map[string]interface{} {
	start := time.Now().Add(48 * time.Hour).UTC()
	return map[string]interface{}{
		"name":      "Opera",
		"location":  "Hall B",
		"starts_at": start,
		"ends_at":   start.Add(2 * time.Hour),
		"max_seats": maxSeats,
		"price":     "35.00",
	}
}

func createEvent(t *testing.T, h http.Handler, maxSeats int) models.Event {
	t.Helper()
	rec, env := do(t, h, http.MethodPost, "/api/admin/events", token(t, auth.RoleAdmin), eventBody(maxSeats))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var event models.Event
	require.NoError(t, json.Unmarshal(env.Data, &event))
	return event
}

func TestCreateEvent(t *testing.T) {
	h, db := setup(t)

	event := createEvent(t, h, 12)
	assert.Equal(t, 12, event.Capacity)
	assert.Equal(t, models.EventStatusActive, event.Status)
	assert.Equal(t, models.Money(3500), event.BasePrice)

	seatList, err := seatdb.New(db).ListSeats(context.Background(), event.ID, "")
	require.NoError(t, err)
	require.Len(t, seatList, 12)
	assert.Equal(t, "A-001", seatList[0].Label())
	assert.Equal(t, "B-011", seatList[10].Label())
}

func TestCreateEvent_Rejections(t *testing.T) {
	h, _ := setup(t)

	rec, _ := do(t, h, http.MethodPost, "/api/admin/events", "", eventBody(5))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/admin/events", token(t, auth.RoleStaff), eventBody(5))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/admin/events", token(t, auth.RoleAdmin), eventBody(0))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/events", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token(t, auth.RoleAdmin))
	raw := httptest.NewRecorder()
	h.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestUpdateEventStatus(t *testing.T) {
	h, _ := setup(t)
	event := createEvent(t, h, 1)
	admin := token(t, auth.RoleAdmin)
	path := fmt.Sprintf("/api/admin/events/%d/status", event.ID)

	rec, env := do(t, h, http.MethodPatch, path, admin, map[string]string{"status": models.EventStatusInactive})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Event
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, models.EventStatusInactive, updated.Status)

	rec, _ = do(t, h, http.MethodPatch, path, admin, map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPatch, "/api/admin/events/987654/status", admin, map[string]string{"status": models.EventStatusActive})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSeatPriceAndDelete(t *testing.T) {
	h, db := setup(t)
	ctx := context.Background()
	event := createEvent(t, h, 2)
	admin := token(t, auth.RoleAdmin)

	store := seatdb.New(db)
	seatList, err := store.ListSeats(ctx, event.ID, "")
	require.NoError(t, err)
	free, sold := seatList[0], seatList[1]
	require.NoError(t, store.MarkSold(ctx, sold.ID, "someone", time.Now()))

	rec, _ := do(t, h, http.MethodPatch, fmt.Sprintf("/api/admin/seats/%d/price", free.ID), admin, map[string]string{"price": "80.50"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := store.GetSeat(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(8050), got.Price)

	rec, _ = do(t, h, http.MethodPatch, fmt.Sprintf("/api/admin/seats/%d/price", free.ID), admin, map[string]string{"price": "-1.00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, fmt.Sprintf("/api/admin/seats/%d", sold.ID), admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, fmt.Sprintf("/api/admin/seats/%d", free.ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, fmt.Sprintf("/api/admin/seats/%d", free.ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/api/admin/seats/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
