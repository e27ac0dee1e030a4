package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking groups the tickets one user bought for one event in a single
// reservation. TotalAmount is the price snapshot taken at reservation time.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID          string    `bun:"id,pk" json:"id"`
	UserID      string    `bun:"user_id,notnull" json:"user_id"`
	EventID     int64     `bun:"event_id,notnull" json:"event_id"`
	TotalAmount Money     `bun:"total_amount,notnull" json:"total_amount"`
	Status      string    `bun:"status,notnull" json:"status"`
	BookedAt    time.Time `bun:"booked_at,notnull" json:"booked_at"`
	ConfirmedAt time.Time `bun:"confirmed_at,nullzero" json:"confirmed_at,omitzero"`
	CancelledAt time.Time `bun:"cancelled_at,nullzero" json:"cancelled_at,omitzero"`

	Tickets []Ticket `bun:"-" json:"tickets,omitempty"`
}

func (b *Booking) SeatIDs() []int64 {
	ids := make([]int64, 0, len(b.Tickets))
	for _, t := range b.Tickets {
		ids = append(ids, t.SeatID)
	}
	return ids
}

func (b *Booking) TicketIDs() []string {
	ids := make([]string, 0, len(b.Tickets))
	for _, t := range b.Tickets {
		ids = append(ids, t.ID)
	}
	return ids
}

type ReserveRequest struct {
	SeatIDs []int64 `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
}
