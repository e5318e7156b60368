package repository

import (
	"context"

	"github.com/kirinyoku/periodic-tables/internal/domain"
)

type ReservationFilter struct {
	// Date restricts the listing to one reservation_date (YYYY-MM-DD).
	Date string
	// MobileNumber matches reservations whose number contains these digits.
	MobileNumber string
}

type Reservations interface {
	List(ctx context.Context, f ReservationFilter) ([]domain.Reservation, error)
	Get(ctx context.Context, id int64) (*domain.Reservation, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Reservation, error)
	Create(ctx context.Context, r domain.Reservation) (*domain.Reservation, error)
	Update(ctx context.Context, r domain.Reservation) (*domain.Reservation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ReservationStatus) (*domain.Reservation, error)
	ListByStatus(ctx context.Context, status domain.ReservationStatus) ([]domain.Reservation, error)
}

type Tables interface {
	List(ctx context.Context) ([]domain.Table, error)
	Get(ctx context.Context, id int64) (*domain.Table, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Table, error)
	Create(ctx context.Context, t domain.Table) (*domain.Table, error)
	SetAssignment(ctx context.Context, tableID int64, reservationID *int64) (*domain.Table, error)
	FindByReservation(ctx context.Context, reservationID int64) (*domain.Table, error)
}

// Repos is the set of repositories bound to one handle, either the
// shared pool or a running transaction.
type Repos interface {
	Reservations() Reservations
	Tables() Tables
}

type Store interface {
	Repos
	// RunTx runs fn atomically. Repos passed to fn must not escape it.
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}
