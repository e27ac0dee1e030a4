package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/models"
	seatdb "ms-booking/internal/seats/db"

	"github.com/google/uuid"
)

const DefaultMaxSeatsPerBooking = 10

type Options struct {
	MaxSeatsPerBooking int
	// HoldTTL is how long a pending booking keeps its seats before the
	// sweeper cancels it. Zero disables expiry.
	HoldTTL time.Duration
	// AllowPastCancel permits cancelling after the event has started.
	AllowPastCancel bool
	Now             func() time.Time
}

// Service is the reservation engine: it reserves seats and drives the
// booking lifecycle, one transaction per operation.
type Service struct {
	uow       UnitOfWork
	publisher Publisher
	cache     StatsInvalidator
	log       *logger.Logger
	opts      Options
}

func NewService(uow UnitOfWork, publisher Publisher, cache StatsInvalidator, log *logger.Logger, opts Options) *Service {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if log == nil {
		log = logger.Discard()
	}
	if opts.MaxSeatsPerBooking <= 0 {
		opts.MaxSeatsPerBooking = DefaultMaxSeatsPerBooking
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{uow: uow, publisher: publisher, cache: cache, log: log, opts: opts}
}

func (s *Service) now() time.Time {
	return s.opts.Now().UTC()
}

type ReserveRequest struct {
	UserID  string
	EventID int64
	SeatIDs []int64
	// Confirm creates the booking already confirmed, for instant
	// single-step purchases.
	Confirm bool
}

func (s *Service) validateReserve(req ReserveRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if req.EventID <= 0 {
		return fmt.Errorf("%w: event id must be positive", ErrInvalidRequest)
	}
	if len(req.SeatIDs) == 0 {
		return fmt.Errorf("%w: at least one seat is required", ErrInvalidRequest)
	}
	if len(req.SeatIDs) > s.opts.MaxSeatsPerBooking {
		return fmt.Errorf("%w: at most %d seats per booking", ErrInvalidRequest, s.opts.MaxSeatsPerBooking)
	}
	seen := make(map[int64]struct{}, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		if id <= 0 {
			return fmt.Errorf("%w: seat id %d is not valid", ErrInvalidRequest, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: seat %d requested twice", ErrInvalidRequest, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Reserve sells the requested seats to the user as one booking. Either
// every seat is sold and the booking with one ticket per seat exists, or
// nothing changed.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*models.Booking, error) {
	if err := s.validateReserve(req); err != nil {
		metrics.ReservationsTotal.WithLabelValues(Outcome(err)).Inc()
		return nil, err
	}

	var booking *models.Booking
	err := s.uow.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		event, err := r.Events.GetEvent(ctx, req.EventID)
		if err != nil {
			return mapStoreError(err)
		}
		if event.Status != models.EventStatusActive {
			return fmt.Errorf("%w: event %d is %s", ErrEventNotOpen, event.ID, event.Status)
		}
		if event.HasStarted(s.now()) {
			return fmt.Errorf("%w: event %d started at %s", ErrEventNotOpen, event.ID, event.StartsAt.Format(time.RFC3339))
		}

		lockStart := time.Now()
		seats, err := r.Seats.LockSeatsForUpdate(ctx, req.EventID, req.SeatIDs)
		metrics.ObserveSince(metrics.SeatLockWait, lockStart)
		if err != nil {
			return err
		}
		if len(seats) != len(req.SeatIDs) {
			return &SeatsUnavailableError{SeatIDs: missingSeats(req.SeatIDs, seats)}
		}

		now := s.now()
		b := &models.Booking{
			ID:       uuid.NewString(),
			UserID:   req.UserID,
			EventID:  req.EventID,
			Status:   models.BookingStatusPending,
			BookedAt: now,
		}
		ticketStatus := models.TicketStatusBooked
		if req.Confirm {
			b.Status = models.BookingStatusConfirmed
			b.ConfirmedAt = now
			ticketStatus = models.TicketStatusConfirmed
		}

		tickets := make([]models.Ticket, 0, len(seats))
		for _, seat := range seats {
			b.TotalAmount += seat.Price
			tickets = append(tickets, models.Ticket{
				ID:        uuid.NewString(),
				BookingID: b.ID,
				SeatID:    seat.ID,
				EventID:   req.EventID,
				UserID:    req.UserID,
				Price:     seat.Price,
				Status:    ticketStatus,
				CreatedAt: now,
			})
		}

		if err := r.Bookings.CreateBooking(ctx, b); err != nil {
			return err
		}
		if err := r.Bookings.CreateTickets(ctx, tickets); err != nil {
			return err
		}
		for _, seat := range seats {
			if err := r.Seats.MarkSold(ctx, seat.ID, req.UserID, now); err != nil {
				return mapStoreError(err)
			}
		}

		b.Tickets = tickets
		booking = b
		return nil
	})
	metrics.ReservationsTotal.WithLabelValues(Outcome(err)).Inc()
	if err != nil {
		err = storageError(err)
		s.log.Warn("BOOKING", fmt.Sprintf("Reserve failed for user %s on event %d seats %v: %v", req.UserID, req.EventID, req.SeatIDs, err))
		return nil, err
	}

	metrics.ReservedSeatsTotal.Add(float64(len(booking.Tickets)))
	s.log.LogBooking("RESERVE", booking.ID, fmt.Sprintf("user %s reserved %d seats for event %d, total %s, status %s",
		booking.UserID, len(booking.Tickets), booking.EventID, booking.TotalAmount, booking.Status))

	eventType := models.BookingEventReserved
	if booking.Status == models.BookingStatusConfirmed {
		eventType = models.BookingEventConfirmed
	}
	s.afterCommit(ctx, eventType, booking, models.SeatStatusSold)
	return booking, nil
}

// QuickBook buys a single seat and confirms it in the same transaction.
func (s *Service) QuickBook(ctx context.Context, userID string, eventID, seatID int64) (*models.Booking, error) {
	return s.Reserve(ctx, ReserveRequest{
		UserID:  userID,
		EventID: eventID,
		SeatIDs: []int64{seatID},
		Confirm: true,
	})
}

// GetBooking returns a booking with its tickets if requesterID owns it.
func (s *Service) GetBooking(ctx context.Context, bookingID, requesterID string) (*models.Booking, error) {
	repos := s.uow.Repos()
	b, err := repos.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, storageError(err)
	}
	if b.UserID != requesterID {
		return nil, ErrUnauthorized
	}
	tickets, err := repos.Bookings.GetTickets(ctx, b.ID)
	if err != nil {
		return nil, storageError(err)
	}
	b.Tickets = tickets
	return b, nil
}

// TicketDetails is an active ticket with the event and seat printed on it.
type TicketDetails struct {
	Ticket models.Ticket
	Event  *models.Event
	Seat   *models.Seat
}

// GetTicketDetails loads one of the requester's active tickets for
// rendering. Cancelled tickets are reported as not found.
func (s *Service) GetTicketDetails(ctx context.Context, bookingID, ticketID, requesterID string) (*TicketDetails, error) {
	b, err := s.GetBooking(ctx, bookingID, requesterID)
	if err != nil {
		return nil, err
	}
	var ticket *models.Ticket
	for i := range b.Tickets {
		if b.Tickets[i].ID == ticketID {
			ticket = &b.Tickets[i]
		}
	}
	if ticket == nil || !ticket.IsActive() {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketID)
	}

	repos := s.uow.Repos()
	event, err := repos.Events.GetEvent(ctx, b.EventID)
	if err != nil {
		return nil, storageError(mapStoreError(err))
	}
	seat, err := repos.Seats.GetSeat(ctx, ticket.SeatID)
	if err != nil {
		return nil, storageError(err)
	}
	return &TicketDetails{Ticket: *ticket, Event: event, Seat: seat}, nil
}

// ListBookings returns the user's bookings, newest first, with tickets.
func (s *Service) ListBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	repos := s.uow.Repos()
	bookings, err := repos.Bookings.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}
	if len(bookings) == 0 {
		return bookings, nil
	}

	ids := make([]string, len(bookings))
	index := make(map[string]int, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
		index[b.ID] = i
	}
	tickets, err := repos.Bookings.ListTicketsByBookings(ctx, ids)
	if err != nil {
		return nil, storageError(err)
	}
	for _, t := range tickets {
		i := index[t.BookingID]
		bookings[i].Tickets = append(bookings[i].Tickets, t)
	}
	return bookings, nil
}

// afterCommit publishes the lifecycle event and drops cached stats. A
// failure here is logged; the committed booking stands.
func (s *Service) afterCommit(ctx context.Context, eventType string, b *models.Booking, seatStatus string) {
	event := models.NewBookingEvent(eventType, b, s.now())
	if err := s.publisher.PublishBookingEvent(ctx, event); err != nil {
		metrics.PublishErrorsTotal.WithLabelValues(eventType).Inc()
		s.log.Error("KAFKA", fmt.Sprintf("Publish %s for booking %s failed: %v", eventType, b.ID, err))
	}

	if seatStatus != "" && len(b.Tickets) > 0 {
		if err := s.publisher.PublishSeatStatus(ctx, models.NewSeatStatusEvent(b.EventID, b.SeatIDs(), seatStatus)); err != nil {
			metrics.PublishErrorsTotal.WithLabelValues("seats.status").Inc()
			s.log.Error("KAFKA", fmt.Sprintf("Publish seat status for booking %s failed: %v", b.ID, err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, b.EventID); err != nil {
			s.log.Warn("CACHE", fmt.Sprintf("Invalidate stats for event %d failed: %v", b.EventID, err))
		}
	}
}

func missingSeats(requested []int64, locked []models.Seat) []int64 {
	got := make(map[int64]struct{}, len(locked))
	for _, s := range locked {
		got[s.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range requested {
		if _, ok := got[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// mapStoreError translates seat store sentinels into engine errors.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, seatdb.ErrEventNotFound):
		return fmt.Errorf("%w: %v", ErrEventNotFound, err)
	case errors.Is(err, seatdb.ErrSeatNotAvailable):
		return fmt.Errorf("%w: %v", ErrSeatsUnavailable, err)
	case errors.Is(err, seatdb.ErrSeatNotFound):
		return fmt.Errorf("%w: %v", ErrSeatsUnavailable, err)
	}
	return err
}

// Outcome names an error for metric labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSeatsUnavailable):
		return "seats_unavailable"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrEventNotOpen):
		return "event_not_open"
	default:
		return "transaction_failure"
	}
}
