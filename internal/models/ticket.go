package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TicketStatusBooked    = "booked"
	TicketStatusConfirmed = "confirmed"
	TicketStatusUsed      = "used"
	TicketStatusCancelled = "cancelled"
)

// Ticket is the per-seat record of a booking. Price is copied from the
// seat when the booking is created.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID        string    `bun:"id,pk" json:"id"`
	BookingID string    `bun:"booking_id,notnull,unique:tickets_booking_seat" json:"booking_id"`
	SeatID    int64     `bun:"seat_id,notnull,unique:tickets_booking_seat" json:"seat_id"`
	EventID   int64     `bun:"event_id,notnull" json:"event_id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	Price     Money     `bun:"price,notnull" json:"price"`
	Status    string    `bun:"status,notnull" json:"status"`
	UsedAt    time.Time `bun:"used_at,nullzero" json:"used_at,omitzero"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// IsActive reports whether the ticket still occupies its seat.
func (t *Ticket) IsActive() bool {
	switch t.Status {
	case TicketStatusBooked, TicketStatusConfirmed, TicketStatusUsed:
		return true
	}
	return false
}
