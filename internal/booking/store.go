package booking

import (
	"context"
	"errors"
	"time"

	"ms-booking/internal/models"
)

// SeatStore is the lockable seat table. Implementations bound to a
// transaction hold row locks until that transaction ends.
type SeatStore interface {
	// LockSeatsForUpdate blocks while another transaction holds any of the
	// rows and returns only the requested seats of eventID that are
	// available.
	LockSeatsForUpdate(ctx context.Context, eventID int64, seatIDs []int64) ([]models.Seat, error)
	LockSeatsByID(ctx context.Context, seatIDs []int64) ([]models.Seat, error)
	MarkSold(ctx context.Context, seatID int64, holderID string, at time.Time) error
	MarkAvailable(ctx context.Context, seatID int64) error
	IsAvailable(ctx context.Context, seatID int64) (bool, error)
	GetSeat(ctx context.Context, seatID int64) (*models.Seat, error)
}

type EventStore interface {
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
}

type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CreateTickets(ctx context.Context, tickets []models.Ticket) error
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	// LockBooking reads the booking row under an exclusive lock.
	LockBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, booking *models.Booking) error
	GetTickets(ctx context.Context, bookingID string) ([]models.Ticket, error)
	LockTicket(ctx context.Context, ticketID string) (*models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID, status string, usedAt time.Time) error
	ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListTicketsByBookings(ctx context.Context, bookingIDs []string) ([]models.Ticket, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// Repos groups the stores of one unit of work.
type Repos struct {
	Seats    SeatStore
	Events   EventStore
	Bookings BookingStore
}

// UnitOfWork runs fn inside a single database transaction. fn receives
// stores bound to that transaction; returning an error rolls everything
// back. Repos gives non-transactional stores for plain reads.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
	Repos() Repos
}

// Publisher receives lifecycle events after their transaction commits.
type Publisher interface {
	PublishBookingEvent(ctx context.Context, event models.BookingEvent) error
	PublishSeatStatus(ctx context.Context, event models.SeatStatusEvent) error
}

// StatsInvalidator drops cached read-side aggregates of an event.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, eventID int64) error
}

// Publishers delivers every event to each publisher in turn and joins
// their errors.
type Publishers []Publisher

func (ps Publishers) PublishBookingEvent(ctx context.Context, event models.BookingEvent) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishBookingEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ps Publishers) PublishSeatStatus(ctx context.Context, event models.SeatStatusEvent) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishSeatStatus(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopPublisher struct{}

func (noopPublisher) PublishBookingEvent(context.Context, models.BookingEvent) error { return nil }
func (noopPublisher) PublishSeatStatus(context.Context, models.SeatStatusEvent) error {
	return nil
}
