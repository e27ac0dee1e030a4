package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SeatStatusAvailable = "available"
	SeatStatusSold      = "sold"
	SeatStatusReserved  = "reserved"
)

// DefaultSection is assigned to seats generated at event creation.
const DefaultSection = "General"

// Seat is the bookable unit of an event. HolderID is empty exactly when
// Status is available.
type Seat struct {
	bun.BaseModel `bun:"table:seats"`

	ID       int64     `bun:"id,pk,autoincrement" json:"id"`
	EventID  int64     `bun:"event_id,notnull,unique:seats_event_row_number" json:"event_id"`
	Row      string    `bun:"row_label,notnull,unique:seats_event_row_number" json:"row"`
	Section  string    `bun:"section,notnull" json:"section"`
	Number   string    `bun:"seat_number,notnull,unique:seats_event_row_number" json:"number"`
	Price    Money     `bun:"price,notnull" json:"price"`
	Status   string    `bun:"status,notnull" json:"status"`
	HolderID string    `bun:"holder_id,nullzero" json:"-"`
	BookedAt time.Time `bun:"booked_at,nullzero" json:"-"`
}

func (s *Seat) IsAvailable() bool {
	return s.Status == SeatStatusAvailable
}

// HeldBy reports whether the seat is sold to the given user.
func (s *Seat) HeldBy(userID string) bool {
	return s.Status == SeatStatusSold && s.HolderID != "" && s.HolderID == userID
}

// Label is the display identity used on tickets, e.g. "A-007".
func (s *Seat) Label() string {
	return s.Row + "-" + s.Number
}
