package availability

import (
	"context"
	"fmt"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	seatdb "ms-booking/internal/seats/db"

	"github.com/uptrace/bun"
)

// Service answers availability and sales questions about an event. Its
// reads are unlocked and may trail concurrent reservations; it is never
// used to decide whether a reservation may proceed.
type Service struct {
	db    *DB
	seats *seatdb.DB
	cache *Cache
	log   *logger.Logger
}

// NewService creates the query service. cache may be nil.
func NewService(db bun.IDB, cache *Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		db:    NewDB(db),
		seats: seatdb.New(db),
		cache: cache,
		log:   log,
	}
}

func (s *Service) requireEvent(ctx context.Context, eventID int64) error {
	ok, err := s.db.EventExists(ctx, eventID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", seatdb.ErrEventNotFound, eventID)
	}
	return nil
}

func (s *Service) AvailableCount(ctx context.Context, eventID int64) (int, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return 0, err
	}
	return s.db.CountSeats(ctx, eventID, models.SeatStatusAvailable)
}

func (s *Service) SoldCount(ctx context.Context, eventID int64) (int, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return 0, err
	}
	return s.db.CountSeats(ctx, eventID, models.SeatStatusSold)
}

// IsSoldOut reports whether no seat of the event is available. An event
// without seats counts as sold out.
func (s *Service) IsSoldOut(ctx context.Context, eventID int64) (bool, error) {
	n, err := s.AvailableCount(ctx, eventID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Revenue sums total_amount over the event's confirmed bookings.
func (s *Service) Revenue(ctx context.Context, eventID int64) (models.Money, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return 0, err
	}
	summary, err := s.db.GetBookingSummary(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return summary.ConfirmedRevenue, nil
}

func (s *Service) BookingCount(ctx context.Context, eventID int64) (int, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return 0, err
	}
	summary, err := s.db.GetBookingSummary(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return summary.TotalBookings, nil
}

func (s *Service) ConfirmedBookingCount(ctx context.Context, eventID int64) (int, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return 0, err
	}
	summary, err := s.db.GetBookingSummary(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return summary.ConfirmedBookings, nil
}

// Stats returns every aggregate of the event, from the cache when it has
// a fresh entry. Cache failures fall through to the database.
func (s *Service) Stats(ctx context.Context, eventID int64) (*models.EventStats, error) {
	if s.cache != nil {
		stats, ok, err := s.cache.Get(ctx, eventID)
		if err != nil {
			s.log.Warn("CACHE", fmt.Sprintf("Stats cache read for event %d failed: %v", eventID, err))
		} else if ok {
			return stats, nil
		}
	}

	stats, err := s.computeStats(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			s.log.Warn("CACHE", fmt.Sprintf("Stats cache write for event %d failed: %v", eventID, err))
		}
	}
	return stats, nil
}

func (s *Service) computeStats(ctx context.Context, eventID int64) (*models.EventStats, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	counts, err := s.db.SeatCountsByStatus(ctx, eventID)
	if err != nil {
		return nil, err
	}
	summary, err := s.db.GetBookingSummary(ctx, eventID)
	if err != nil {
		return nil, err
	}

	stats := &models.EventStats{
		EventID:           eventID,
		AvailableSeats:    counts[models.SeatStatusAvailable],
		SoldSeats:         counts[models.SeatStatusSold],
		ReservedSeats:     counts[models.SeatStatusReserved],
		TotalRevenue:      summary.ConfirmedRevenue,
		TotalBookings:     summary.TotalBookings,
		ConfirmedBookings: summary.ConfirmedBookings,
	}
	for _, n := range counts {
		stats.TotalSeats += n
	}
	stats.IsSoldOut = stats.AvailableSeats == 0
	return stats, nil
}

// ListSeats returns every seat of the event ordered by row then number.
func (s *Service) ListSeats(ctx context.Context, eventID int64) ([]models.Seat, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.seats.ListSeats(ctx, eventID, "")
}

func (s *Service) ListAvailableSeats(ctx context.Context, eventID int64) ([]models.Seat, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.seats.ListSeats(ctx, eventID, models.SeatStatusAvailable)
}
