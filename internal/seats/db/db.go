package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

var (
	ErrSeatNotFound     = errors.New("seat not found")
	ErrSeatNotAvailable = errors.New("seat is held by another user")
)

// DB is the seat store. It runs its queries either against the pool or,
// after WithTx, inside the caller's transaction.
type DB struct {
	Bun bun.IDB
}

func New(idb bun.IDB) *DB {
	return &DB{Bun: idb}
}

// WithTx returns a store bound to tx. Row locks taken through the
// returned store are held until tx commits or rolls back.
func (d *DB) WithTx(tx bun.Tx) *DB {
	return &DB{Bun: tx}
}

// forUpdate adds a row lock where the dialect has one. SQLite has no
// FOR UPDATE; its single writer already serializes transactions.
func (d *DB) forUpdate(q *bun.SelectQuery) *bun.SelectQuery {
	if d.Bun.Dialect().Name() == dialect.SQLite {
		return q
	}
	return q.For("UPDATE")
}

// ---------------- LOCKING ----------------

// LockSeatsForUpdate locks the requested seats of an event that are still
// available. It blocks while another transaction holds any of the rows.
// Rows are locked in id order so overlapping requests cannot deadlock.
// A result shorter than seatIDs means some seats are taken or belong to
// another event.
func (d *DB) LockSeatsForUpdate(ctx context.Context, eventID int64, seatIDs []int64) ([]models.Seat, error) {
	var seats []models.Seat
	if len(seatIDs) == 0 {
		return seats, nil
	}
	q := d.Bun.NewSelect().
		Model(&seats).
		Where("event_id = ?", eventID).
		Where("id IN (?)", bun.In(seatIDs)).
		Where("status = ?", models.SeatStatusAvailable).
		Order("id ASC")
	if err := d.forUpdate(q).Scan(ctx); err != nil {
		return nil, fmt.Errorf("lock seats for event %d: %w", eventID, err)
	}
	return seats, nil
}

// LockSeatsByID locks seats regardless of status.
func (d *DB) LockSeatsByID(ctx context.Context, seatIDs []int64) ([]models.Seat, error) {
	var seats []models.Seat
	if len(seatIDs) == 0 {
		return seats, nil
	}
	q := d.Bun.NewSelect().
		Model(&seats).
		Where("id IN (?)", bun.In(seatIDs)).
		Order("id ASC")
	if err := d.forUpdate(q).Scan(ctx); err != nil {
		return nil, fmt.Errorf("lock seats: %w", err)
	}
	return seats, nil
}

// ---------------- STATUS WRITES ----------------

// MarkSold sells an available seat to holderID. Selling a seat that is
// already sold to the same holder is a no-op.
func (d *DB) MarkSold(ctx context.Context, seatID int64, holderID string, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Seat)(nil)).
		Set("status = ?", models.SeatStatusSold).
		Set("holder_id = ?", holderID).
		Set("booked_at = ?", at).
		Where("id = ?", seatID).
		Where("status = ?", models.SeatStatusAvailable).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark seat %d sold: %w", seatID, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	seat, err := d.GetSeat(ctx, seatID)
	if err != nil {
		return err
	}
	if seat.HeldBy(holderID) {
		return nil
	}
	return fmt.Errorf("mark seat %d sold: %w", seatID, ErrSeatNotAvailable)
}

// MarkAvailable releases a seat and clears its holder. Releasing an
// available seat is a no-op.
func (d *DB) MarkAvailable(ctx context.Context, seatID int64) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Seat)(nil)).
		Set("status = ?", models.SeatStatusAvailable).
		Set("holder_id = NULL").
		Set("booked_at = NULL").
		Where("id = ?", seatID).
		Where("status <> ?", models.SeatStatusAvailable).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark seat %d available: %w", seatID, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	// Nothing changed: either already available or missing.
	_, err = d.GetSeat(ctx, seatID)
	return err
}

// IsAvailable is an unlocked read and must not gate a reservation.
func (d *DB) IsAvailable(ctx context.Context, seatID int64) (bool, error) {
	seat, err := d.GetSeat(ctx, seatID)
	if err != nil {
		return false, err
	}
	return seat.IsAvailable(), nil
}

// ---------------- READS ----------------

func (d *DB) GetSeat(ctx context.Context, seatID int64) (*models.Seat, error) {
	var seat models.Seat
	err := d.Bun.NewSelect().
		Model(&seat).
		Where("id = ?", seatID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("seat %d: %w", seatID, ErrSeatNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get seat %d: %w", seatID, err)
	}
	return &seat, nil
}

// ListSeats returns every seat of an event ordered for display. When
// status is non-empty only seats in that status are returned.
func (d *DB) ListSeats(ctx context.Context, eventID int64, status string) ([]models.Seat, error) {
	var seats []models.Seat
	q := d.Bun.NewSelect().
		Model(&seats).
		Where("event_id = ?", eventID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.OrderExpr("length(row_label) ASC, row_label ASC, seat_number ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list seats for event %d: %w", eventID, err)
	}
	return seats, nil
}
