package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	EventStatusActive   = "active"
	EventStatusInactive = "inactive"
	EventStatusCanceled = "canceled"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description,omitempty"`
	Location    string    `bun:"location" json:"location,omitempty"`
	StartsAt    time.Time `bun:"starts_at,notnull" json:"starts_at"`
	EndsAt      time.Time `bun:"ends_at,notnull" json:"ends_at"`
	Status      string    `bun:"status,notnull" json:"status"`
	Capacity    int       `bun:"capacity,notnull" json:"capacity"`
	BasePrice   Money     `bun:"base_price,notnull" json:"base_price"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// HasStarted reports whether the event's start time is at or before now.
func (e *Event) HasStarted(now time.Time) bool {
	return !e.StartsAt.After(now)
}

func IsValidEventStatus(status string) bool {
	switch status {
	case EventStatusActive, EventStatusInactive, EventStatusCanceled:
		return true
	}
	return false
}
