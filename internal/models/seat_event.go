package models

import (
	"time"
)

const (
	BookingEventReserved  = "booking.reserved"
	BookingEventConfirmed = "booking.confirmed"
	BookingEventCancelled = "booking.cancelled"
	BookingEventExpired   = "booking.expired"
	TicketEventUsed       = "ticket.used"
)

// BookingEvent is the payload published after a lifecycle transaction
// commits.
type BookingEvent struct {
	Type        string    `json:"type"`
	BookingID   string    `json:"booking_id"`
	UserID      string    `json:"user_id"`
	EventID     int64     `json:"event_id"`
	SeatIDs     []int64   `json:"seat_ids"`
	TicketIDs   []string  `json:"ticket_ids"`
	TotalAmount Money     `json:"total_amount"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewBookingEvent snapshots a booking and its tickets into an event payload.
func NewBookingEvent(eventType string, b *Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		UserID:      b.UserID,
		EventID:     b.EventID,
		SeatIDs:     b.SeatIDs(),
		TicketIDs:   b.TicketIDs(),
		TotalAmount: b.TotalAmount,
		Status:      b.Status,
		OccurredAt:  at,
	}
}

// SeatStatusEvent tells downstream seat maps which seats changed status.
type SeatStatusEvent struct {
	EventID int64   `json:"event_id"`
	SeatIDs []int64 `json:"seat_ids"`
	Status  string  `json:"status"`
}

func NewSeatStatusEvent(eventID int64, seatIDs []int64, status string) SeatStatusEvent {
	return SeatStatusEvent{
		EventID: eventID,
		SeatIDs: seatIDs,
		Status:  status,
	}
}
