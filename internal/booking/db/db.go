package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/booking"
	"ms-booking/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// DB persists bookings and tickets.
type DB struct {
	Bun bun.IDB
}

func New(idb bun.IDB) *DB {
	return &DB{Bun: idb}
}

func (d *DB) WithTx(tx bun.Tx) *DB {
	return &DB{Bun: tx}
}

func (d *DB) forUpdate(q *bun.SelectQuery) *bun.SelectQuery {
	if d.Bun.Dialect().Name() == dialect.SQLite {
		return q
	}
	return q.For("UPDATE")
}

// ---------------- BOOKINGS ----------------

func (d *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	if _, err := d.Bun.NewInsert().Model(b).Exec(ctx); err != nil {
		return fmt.Errorf("create booking %s: %w", b.ID, err)
	}
	return nil
}

func (d *DB) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return d.getBooking(ctx, bookingID, false)
}

func (d *DB) LockBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return d.getBooking(ctx, bookingID, true)
}

func (d *DB) getBooking(ctx context.Context, bookingID string, lock bool) (*models.Booking, error) {
	var b models.Booking
	q := d.Bun.NewSelect().
		Model(&b).
		Where("id = ?", bookingID).
		Limit(1)
	if lock {
		q = d.forUpdate(q)
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", booking.ErrBookingNotFound, bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", bookingID, err)
	}
	return &b, nil
}

// UpdateBookingStatus writes the status fields only; total_amount is never
// rewritten after creation.
func (d *DB) UpdateBookingStatus(ctx context.Context, b *models.Booking) error {
	_, err := d.Bun.NewUpdate().
		Model(b).
		Column("status", "confirmed_at", "cancelled_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update booking %s: %w", b.ID, err)
	}
	return nil
}

// ListBookingsByUser → all bookings of a user, newest first
func (d *DB) ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("user_id = ?", userID).
		Order("booked_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings for user %s: %w", userID, err)
	}
	return bookings, nil
}

// ListExpiredPending → ids of pending bookings booked before cutoff
func (d *DB) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	var ids []string
	err := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		Column("id").
		Where("status = ?", models.BookingStatusPending).
		Where("booked_at < ?", cutoff).
		Order("booked_at ASC").
		Limit(limit).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("list expired pending bookings: %w", err)
	}
	return ids, nil
}

// ---------------- TICKETS ----------------

func (d *DB) CreateTickets(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	if _, err := d.Bun.NewInsert().Model(&tickets).Exec(ctx); err != nil {
		return fmt.Errorf("create %d tickets: %w", len(tickets), err)
	}
	return nil
}

// GetTickets → tickets of a booking in seat order
func (d *DB) GetTickets(ctx context.Context, bookingID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("booking_id = ?", bookingID).
		Order("seat_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get tickets for booking %s: %w", bookingID, err)
	}
	return tickets, nil
}

func (d *DB) ListTicketsByBookings(ctx context.Context, bookingIDs []string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if len(bookingIDs) == 0 {
		return tickets, nil
	}
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("booking_id IN (?)", bun.In(bookingIDs)).
		Order("booking_id ASC", "seat_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

func (d *DB) LockTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var t models.Ticket
	q := d.Bun.NewSelect().
		Model(&t).
		Where("id = ?", ticketID).
		Limit(1)
	err := d.forUpdate(q).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", booking.ErrTicketNotFound, ticketID)
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	return &t, nil
}

// UpdateTicketStatus sets the status, and used_at when usedAt is non-zero.
// A used ticket is never rewritten.
func (d *DB) UpdateTicketStatus(ctx context.Context, ticketID, status string, usedAt time.Time) error {
	q := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", status).
		Where("id = ?", ticketID).
		Where("status <> ?", models.TicketStatusUsed)
	if !usedAt.IsZero() {
		q = q.Set("used_at = ?", usedAt)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", ticketID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: ticket %s is used or missing", booking.ErrInvalidTransition, ticketID)
	}
	return nil
}
