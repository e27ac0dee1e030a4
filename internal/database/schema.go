package database

import (
	"context"
	"fmt"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

var schemaModels = []interface{}{
	(*models.Event)(nil),
	(*models.Seat)(nil),
	(*models.Booking)(nil),
	(*models.Ticket)(nil),
}

// indexes mirror the ones in the SQL migrations. The partial unique index
// on tickets allows at most one active ticket per seat.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS seats_event_status_idx ON seats (event_id, status)`,
	`CREATE INDEX IF NOT EXISTS bookings_user_idx ON bookings (user_id)`,
	`CREATE INDEX IF NOT EXISTS bookings_status_booked_at_idx ON bookings (status, booked_at)`,
	`CREATE INDEX IF NOT EXISTS tickets_booking_idx ON tickets (booking_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS tickets_active_seat_uq ON tickets (seat_id) WHERE status IN ('booked', 'confirmed', 'used')`,
}

// CreateSchema builds the tables from the bun models. It backs SQLite dev
// mode and tests; PostgreSQL deployments use the SQL migrations.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range schemaModels {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// DropSchema removes all tables, children first.
func DropSchema(ctx context.Context, db *bun.DB) error {
	for i := len(schemaModels) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(schemaModels[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", schemaModels[i], err)
		}
	}
	return nil
}
