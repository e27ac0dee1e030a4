package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

// ---------------- EVENTS ----------------

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Returning("id").Exec(ctx)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (d *DB) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", eventID, ErrEventNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", eventID, err)
	}
	return &event, nil
}

func (d *DB) UpdateEventStatus(ctx context.Context, eventID int64, status string, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", at).
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update event %d status: %w", eventID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %d: %w", eventID, ErrEventNotFound)
	}
	return nil
}

// ShrinkCapacity lowers the event's capacity after seats are removed so it
// keeps matching the seat count.
func (d *DB) ShrinkCapacity(ctx context.Context, eventID int64, removed int, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("capacity = capacity - ?", removed).
		Set("updated_at = ?", at).
		Where("id = ?", eventID).
		Where("capacity >= ?", removed).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("shrink event %d capacity: %w", eventID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %d: %w", eventID, ErrEventNotFound)
	}
	return nil
}

// ---------------- PROVISIONING ----------------

// CreateSeats bulk-inserts the seat set of an event.
func (d *DB) CreateSeats(ctx context.Context, seats []models.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&seats).Returning("id").Exec(ctx)
	if err != nil {
		return fmt.Errorf("create %d seats: %w", len(seats), err)
	}
	return nil
}

// UpdatePrice changes the price future bookings pay. Tickets keep the
// price they were issued with.
func (d *DB) UpdatePrice(ctx context.Context, seatID int64, price models.Money) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Seat)(nil)).
		Set("price = ?", price).
		Where("id = ?", seatID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update seat %d price: %w", seatID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("seat %d: %w", seatID, ErrSeatNotFound)
	}
	return nil
}

func (d *DB) DeleteSeat(ctx context.Context, seatID int64) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Seat)(nil)).
		Where("id = ?", seatID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete seat %d: %w", seatID, err)
	}
	return nil
}

// HasTickets reports whether any ticket, in any status, references the seat.
func (d *DB) HasTickets(ctx context.Context, seatID int64) (bool, error) {
	exists, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("seat_id = ?", seatID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check tickets for seat %d: %w", seatID, err)
	}
	return exists, nil
}
