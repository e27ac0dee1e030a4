package availability

import (
	"context"
	"fmt"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// DB runs the aggregate read queries. It never locks rows.
type DB struct {
	bun bun.IDB
}

func NewDB(db bun.IDB) *DB {
	return &DB{bun: db}
}

type statusCount struct {
	Status string `bun:"status"`
	Count  int    `bun:"count"`
}

// SeatCountsByStatus counts an event's seats per status.
func (db *DB) SeatCountsByStatus(ctx context.Context, eventID int64) (map[string]int, error) {
	var rows []statusCount
	err := db.bun.NewSelect().
		Model((*models.Seat)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		Where("event_id = ?", eventID).
		GroupExpr("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("count seats for event %d: %w", eventID, err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountSeats counts an event's seats, optionally filtered by status.
func (db *DB) CountSeats(ctx context.Context, eventID int64, status string) (int, error) {
	q := db.bun.NewSelect().
		Model((*models.Seat)(nil)).
		Where("event_id = ?", eventID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count seats for event %d: %w", eventID, err)
	}
	return n, nil
}

// BookingSummaryData is the raw booking aggregate of one event.
type BookingSummaryData struct {
	TotalBookings     int          `bun:"total_bookings"`
	ConfirmedBookings int          `bun:"confirmed_bookings"`
	ConfirmedRevenue  models.Money `bun:"confirmed_revenue"`
}

// GetBookingSummary counts bookings and sums confirmed revenue in one pass.
func (db *DB) GetBookingSummary(ctx context.Context, eventID int64) (*BookingSummaryData, error) {
	var summary BookingSummaryData
	err := db.bun.NewRaw(`
		SELECT
			COUNT(*) AS total_bookings,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS confirmed_bookings,
			COALESCE(SUM(CASE WHEN status = ? THEN total_amount ELSE 0 END), 0) AS confirmed_revenue
		FROM
			bookings
		WHERE
			event_id = ?
	`, models.BookingStatusConfirmed, models.BookingStatusConfirmed, eventID).Scan(ctx, &summary)
	if err != nil {
		return nil, fmt.Errorf("summarize bookings for event %d: %w", eventID, err)
	}
	return &summary, nil
}

func (db *DB) EventExists(ctx context.Context, eventID int64) (bool, error) {
	exists, err := db.bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("id = ?", eventID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check event %d: %w", eventID, err)
	}
	return exists, nil
}
