package seats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	seatdb "ms-booking/internal/seats/db"
	"ms-booking/internal/validation"

	"github.com/uptrace/bun"
)

// SeatsPerRow is how many generated seats share a row letter.
const SeatsPerRow = 10

var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrSeatSold     = errors.New("seat is sold")
	ErrSeatInUse    = errors.New("seat has tickets")
)

// StatsInvalidator drops cached aggregates after a provisioning write.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, eventID int64) error
}

type CreateEventRequest struct {
	Name        string       `json:"name" validate:"required,max=255"`
	Description string       `json:"description"`
	Location    string       `json:"location" validate:"required,max=255"`
	StartsAt    time.Time    `json:"starts_at" validate:"required"`
	EndsAt      time.Time    `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Status      string       `json:"status" validate:"omitempty,oneof=active inactive canceled"`
	MaxSeats    int          `json:"max_seats" validate:"required,min=1,max=10000"`
	Price       models.Money `json:"price" validate:"gte=0"`
}

// Service provisions events and their fixed seat sets.
type Service struct {
	db    *bun.DB
	cache StatsInvalidator
	log   *logger.Logger
	now   func() time.Time
}

func NewService(db *bun.DB, cache StatsInvalidator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{db: db, cache: cache, log: log, now: time.Now}
}

// RowLabel names the row of the n-th generated seat (1-based): seats 1-10
// are row A, 251-260 row Z, 261-270 row AA.
func RowLabel(n int) string {
	row := (n-1)/SeatsPerRow + 1
	var letters []byte
	for row > 0 {
		row--
		letters = append([]byte{byte('A' + row%26)}, letters...)
		row /= 26
	}
	return string(letters)
}

// SeatNumber is the zero-padded sequence number of the n-th seat.
func SeatNumber(n int) string {
	return fmt.Sprintf("%03d", n)
}

// CreateEvent stores the event and generates MaxSeats available seats at
// the event price in one transaction.
func (s *Service) CreateEvent(ctx context.Context, req CreateEventRequest) (*models.Event, error) {
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if req.Status == "" {
		req.Status = models.EventStatusActive
	}

	now := s.now().UTC()
	event := &models.Event{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		Status:      req.Status,
		Capacity:    req.MaxSeats,
		BasePrice:   req.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		store := seatdb.New(tx)
		if err := store.CreateEvent(ctx, event); err != nil {
			return err
		}
		seats := make([]models.Seat, req.MaxSeats)
		for i := range seats {
			seats[i] = models.Seat{
				EventID: event.ID,
				Row:     RowLabel(i + 1),
				Section: models.DefaultSection,
				Number:  SeatNumber(i + 1),
				Price:   req.Price,
				Status:  models.SeatStatusAvailable,
			}
		}
		return store.CreateSeats(ctx, seats)
	})
	if err != nil {
		return nil, err
	}

	s.log.LogDatabase("INSERT", "events", fmt.Sprintf("event %d %q created with %d seats at %s", event.ID, event.Name, req.MaxSeats, req.Price))
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	return seatdb.New(s.db).GetEvent(ctx, eventID)
}

// UpdateEventStatus opens or closes an event for new reservations.
// Existing bookings are not touched.
func (s *Service) UpdateEventStatus(ctx context.Context, eventID int64, status string) error {
	if !models.IsValidEventStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, status)
	}
	if err := seatdb.New(s.db).UpdateEventStatus(ctx, eventID, status, s.now().UTC()); err != nil {
		return err
	}
	s.log.LogDatabase("UPDATE", "events", fmt.Sprintf("event %d status -> %s", eventID, status))
	return nil
}

// UpdateSeatPrice changes what future bookings pay for the seat. Booked
// tickets and booking totals keep their snapshot.
func (s *Service) UpdateSeatPrice(ctx context.Context, seatID int64, price models.Money) error {
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidEvent)
	}
	store := seatdb.New(s.db)
	seat, err := store.GetSeat(ctx, seatID)
	if err != nil {
		return err
	}
	if err := store.UpdatePrice(ctx, seatID, price); err != nil {
		return err
	}
	s.log.LogDatabase("UPDATE", "seats", fmt.Sprintf("seat %d price %s -> %s", seatID, seat.Price, price))
	s.invalidate(ctx, seat.EventID)
	return nil
}

// DeleteSeat removes an available seat that no ticket has ever referenced
// and lowers the event capacity with it. The seat row is locked so a
// concurrent reservation either sees it gone or finishes first.
func (s *Service) DeleteSeat(ctx context.Context, seatID int64) error {
	var eventID int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		store := seatdb.New(tx)
		locked, err := store.LockSeatsByID(ctx, []int64{seatID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return fmt.Errorf("seat %d: %w", seatID, seatdb.ErrSeatNotFound)
		}
		seat := locked[0]
		if !seat.IsAvailable() {
			return fmt.Errorf("%w: seat %d is %s", ErrSeatSold, seatID, seat.Status)
		}
		used, err := store.HasTickets(ctx, seatID)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: seat %d", ErrSeatInUse, seatID)
		}
		eventID = seat.EventID
		if err := store.DeleteSeat(ctx, seatID); err != nil {
			return err
		}
		return store.ShrinkCapacity(ctx, eventID, 1, s.now().UTC())
	})
	if err != nil {
		return err
	}

	s.log.LogDatabase("DELETE", "seats", fmt.Sprintf("seat %d deleted from event %d", seatID, eventID))
	s.invalidate(ctx, eventID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, eventID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		s.log.Warn("CACHE", fmt.Sprintf("Invalidate stats for event %d failed: %v", eventID, err))
	}
}
