package db

import (
	"context"

	"ms-booking/internal/booking"
	seatdb "ms-booking/internal/seats/db"

	"github.com/uptrace/bun"
)

// UnitOfWork runs reservation engine operations in bun transactions.
type UnitOfWork struct {
	bun *bun.DB
}

func NewUnitOfWork(db *bun.DB) *UnitOfWork {
	return &UnitOfWork{bun: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise. Every
// store in repos shares the transaction, so a seat lock taken by one is
// held across all writes of fn.
func (u *UnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, repos booking.Repos) error) error {
	return u.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		seats := seatdb.New(tx)
		return fn(ctx, booking.Repos{
			Seats:    seats,
			Events:   seats,
			Bookings: New(tx),
		})
	})
}

func (u *UnitOfWork) Repos() booking.Repos {
	seats := seatdb.New(u.bun)
	return booking.Repos{
		Seats:    seats,
		Events:   seats,
		Bookings: New(u.bun),
	}
}
