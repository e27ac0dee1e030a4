package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/metrics"
	"ms-booking/internal/models"
)

// Confirm moves a pending booking and its booked tickets to confirmed.
func (s *Service) Confirm(ctx context.Context, bookingID, requesterID string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.uow.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		b, err := r.Bookings.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != requesterID {
			return ErrUnauthorized
		}
		if b.Status != models.BookingStatusPending {
			return transitionError("booking", b.Status, models.BookingStatusConfirmed)
		}

		tickets, err := r.Bookings.GetTickets(ctx, b.ID)
		if err != nil {
			return err
		}
		for i := range tickets {
			if tickets[i].Status != models.TicketStatusBooked {
				continue
			}
			if err := r.Bookings.UpdateTicketStatus(ctx, tickets[i].ID, models.TicketStatusConfirmed, time.Time{}); err != nil {
				return err
			}
			tickets[i].Status = models.TicketStatusConfirmed
		}

		b.Status = models.BookingStatusConfirmed
		b.ConfirmedAt = s.now()
		if err := r.Bookings.UpdateBookingStatus(ctx, b); err != nil {
			return err
		}

		b.Tickets = tickets
		booking = b
		return nil
	})
	if err := s.finish("confirm", bookingID, err); err != nil {
		return nil, err
	}

	s.log.LogBooking("CONFIRM", booking.ID, fmt.Sprintf("confirmed %d tickets", len(booking.Tickets)))
	s.afterCommit(ctx, models.BookingEventConfirmed, booking, "")
	return booking, nil
}

// Cancel releases the booking's seats and cancels it with all its
// tickets. The booking's total amount is kept as recorded.
func (s *Service) Cancel(ctx context.Context, bookingID, requesterID string) (*models.Booking, error) {
	booking, err := s.cancel(ctx, bookingID, requesterID, false)
	if err := s.finish("cancel", bookingID, err); err != nil {
		return nil, err
	}

	s.log.LogBooking("CANCEL", booking.ID, fmt.Sprintf("cancelled by owner, %d seats released", len(booking.Tickets)))
	s.afterCommit(ctx, models.BookingEventCancelled, booking, models.SeatStatusAvailable)
	return booking, nil
}

// cancel runs the cancellation transaction. expiry marks the sweeper path:
// no owner or event-start check, and only pending bookings qualify.
func (s *Service) cancel(ctx context.Context, bookingID, requesterID string, expiry bool) (*models.Booking, error) {
	var booking *models.Booking
	err := s.uow.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		b, err := r.Bookings.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !expiry && b.UserID != requesterID {
			return ErrUnauthorized
		}

		switch b.Status {
		case models.BookingStatusPending:
		case models.BookingStatusConfirmed:
			if expiry {
				return transitionError("booking", b.Status, models.BookingStatusCancelled)
			}
		default:
			return transitionError("booking", b.Status, models.BookingStatusCancelled)
		}

		tickets, err := r.Bookings.GetTickets(ctx, b.ID)
		if err != nil {
			return err
		}
		for _, t := range tickets {
			if t.Status == models.TicketStatusUsed {
				return fmt.Errorf("%w: ticket %s is already used", ErrInvalidTransition, t.ID)
			}
		}

		now := s.now()
		if !expiry && !s.opts.AllowPastCancel {
			event, err := r.Events.GetEvent(ctx, b.EventID)
			if err != nil {
				return mapStoreError(err)
			}
			if event.HasStarted(now) {
				return fmt.Errorf("%w: event %d has already started", ErrInvalidTransition, event.ID)
			}
		}

		var seatIDs []int64
		for _, t := range tickets {
			if t.Status != models.TicketStatusCancelled {
				seatIDs = append(seatIDs, t.SeatID)
			}
		}
		seats, err := r.Seats.LockSeatsByID(ctx, seatIDs)
		if err != nil {
			return err
		}
		held := make(map[int64]bool, len(seats))
		for _, seat := range seats {
			held[seat.ID] = seat.HeldBy(b.UserID)
		}

		for i := range tickets {
			if tickets[i].Status == models.TicketStatusCancelled {
				continue
			}
			if held[tickets[i].SeatID] {
				if err := r.Seats.MarkAvailable(ctx, tickets[i].SeatID); err != nil {
					return mapStoreError(err)
				}
			}
			if err := r.Bookings.UpdateTicketStatus(ctx, tickets[i].ID, models.TicketStatusCancelled, time.Time{}); err != nil {
				return err
			}
			tickets[i].Status = models.TicketStatusCancelled
		}

		b.Status = models.BookingStatusCancelled
		b.CancelledAt = now
		if err := r.Bookings.UpdateBookingStatus(ctx, b); err != nil {
			return err
		}

		b.Tickets = tickets
		booking = b
		return nil
	})
	return booking, err
}

// UseTicket marks one confirmed ticket of the requester's booking as used.
// Sibling tickets and the booking status are unchanged.
func (s *Service) UseTicket(ctx context.Context, bookingID, ticketID, requesterID string) (*models.Ticket, error) {
	var ticket *models.Ticket
	var booking *models.Booking
	err := s.uow.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		b, err := r.Bookings.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != requesterID {
			return ErrUnauthorized
		}

		t, err := r.Bookings.LockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if t.BookingID != b.ID {
			return fmt.Errorf("%w: ticket %s is not part of booking %s", ErrTicketNotFound, ticketID, bookingID)
		}

		if err := s.markUsed(ctx, r, t); err != nil {
			return err
		}
		b.Tickets = []models.Ticket{*t}
		ticket, booking = t, b
		return nil
	})
	if err := s.finish("use", bookingID, err); err != nil {
		return nil, err
	}

	s.log.LogBooking("USE", booking.ID, fmt.Sprintf("ticket %s used", ticket.ID))
	s.afterCommit(ctx, models.TicketEventUsed, booking, "")
	return ticket, nil
}

// RedeemTicket is the gate-side use of a ticket known only by its opaque
// id, e.g. scanned from a QR code. The scanner is not the owner, so there
// is no ownership check.
func (s *Service) RedeemTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var ticket *models.Ticket
	var booking *models.Booking
	err := s.uow.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		t, err := r.Bookings.LockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		b, err := r.Bookings.GetBooking(ctx, t.BookingID)
		if err != nil {
			return err
		}
		if err := s.markUsed(ctx, r, t); err != nil {
			return err
		}
		b.Tickets = []models.Ticket{*t}
		ticket, booking = t, b
		return nil
	})
	if err := s.finish("redeem", ticketID, err); err != nil {
		return nil, err
	}

	s.log.LogBooking("REDEEM", booking.ID, fmt.Sprintf("ticket %s redeemed at gate", ticket.ID))
	s.afterCommit(ctx, models.TicketEventUsed, booking, "")
	return ticket, nil
}

func (s *Service) markUsed(ctx context.Context, r Repos, t *models.Ticket) error {
	if t.Status != models.TicketStatusConfirmed {
		return transitionError("ticket", t.Status, models.TicketStatusUsed)
	}
	now := s.now()
	if err := r.Bookings.UpdateTicketStatus(ctx, t.ID, models.TicketStatusUsed, now); err != nil {
		return err
	}
	t.Status = models.TicketStatusUsed
	t.UsedAt = now
	return nil
}

// ExpirePending cancels pending bookings older than the hold TTL. Each
// booking is cancelled in its own transaction with its status re-checked
// under lock, so a booking confirmed in the meantime is left alone.
func (s *Service) ExpirePending(ctx context.Context, batchSize int) (int, error) {
	if s.opts.HoldTTL <= 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	cutoff := s.now().Add(-s.opts.HoldTTL)
	ids, err := s.uow.Repos().Bookings.ListExpiredPending(ctx, cutoff, batchSize)
	if err != nil {
		return 0, storageError(err)
	}

	expired := 0
	var errs []error
	for _, id := range ids {
		booking, err := s.cancel(ctx, id, "", true)
		metrics.LifecycleTransitionsTotal.WithLabelValues("expire", Outcome(err)).Inc()
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("expire booking %s: %w", id, storageError(err)))
			continue
		}

		expired++
		metrics.ExpiredBookingsTotal.Inc()
		s.log.LogBooking("EXPIRE", booking.ID, fmt.Sprintf("hold older than %s released %d seats", s.opts.HoldTTL, len(booking.Tickets)))
		s.afterCommit(ctx, models.BookingEventExpired, booking, models.SeatStatusAvailable)
	}
	return expired, errors.Join(errs...)
}

// finish records the outcome of a lifecycle call and normalizes its error.
func (s *Service) finish(operation, id string, err error) error {
	metrics.LifecycleTransitionsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	if err == nil {
		return nil
	}
	err = storageError(err)
	s.log.Warn("BOOKING", fmt.Sprintf("%s %s failed: %v", operation, id, err))
	return err
}
