// Package seating assigns reservations to tables and frees them again,
// keeping the table assignment and the reservation status in step.
package seating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/periodic-tables/internal/domain"
	"github.com/kirinyoku/periodic-tables/internal/events"
	"github.com/kirinyoku/periodic-tables/internal/metrics"
	"github.com/kirinyoku/periodic-tables/internal/repository"
	redisrepo "github.com/kirinyoku/periodic-tables/internal/repository/redis"
	"github.com/kirinyoku/periodic-tables/internal/service/validate"
	"github.com/kirinyoku/periodic-tables/internal/uow"
)

type Service struct {
	store     repository.Store
	cache     *redisrepo.Cache
	publisher events.Publisher
	uow       *uow.UoW
	logger    *slog.Logger
}

// New builds the coordinator. cache and publisher may be nil.
func New(
	store repository.Store,
	cache *redisrepo.Cache,
	publisher events.Publisher,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:     store,
		cache:     cache,
		publisher: publisher,
		uow:       uow.NewUoW(store),
		logger:    logger,
	}
}

// Seat assigns a booked reservation to a free table.
//
// The table row is locked first, then the reservation row. The reservation
// is marked seated before the table assignment is written.
//
// Parameters:
//   - ctx: request-scoped context.
//   - tableID: table to seat at.
//   - reservationID: reservation to seat, nil when the request omitted it.
//
// Returns:
//   - *domain.Table: the table with its new assignment.
//   - error: *validate.Error when the table or reservation is missing,
//     occupied, not booked or too large for the table.
//   - error: seating.ErrConflict if the reservation is already at another table.
func (s *Service) Seat(ctx context.Context, tableID int64, reservationID *int64) (*domain.Table, error) {
	const op = "service.seating.Seat"

	var seated *domain.Table

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		in := validate.SeatInput{TableID: tableID, ReservationID: reservationID}

		table, err := lockTable(ctx, tx, tableID)
		if err != nil {
			return err
		}
		in.Table = table

		if reservationID != nil {
			res, err := lockReservation(ctx, tx, *reservationID)
			if err != nil {
				return err
			}
			in.Reservation = res
		}

		if err := validate.Seat(in); err != nil {
			return err
		}

		res, err := tx.Reservations().UpdateStatus(ctx, *reservationID, domain.StatusSeated)
		if err != nil {
			return err
		}

		t, err := tx.Tables().SetAssignment(ctx, tableID, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrConflict
			}
			return err
		}
		seated = t

		after(func(ctx context.Context) {
			s.changed(ctx, domain.Change{
				Kind:          domain.ChangeTableSeated,
				TableID:       t.ID,
				ReservationID: res.ID,
				Date:          res.ReservationDate,
				Status:        res.Status,
			})
		})

		return nil
	})
	metrics.ObserveSeating("seat", outcome(err))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return seated, nil
}

// Unseat frees an occupied table and finishes the reservation seated there.
// A table pointing at a reservation that is not seated is freed without
// touching that reservation.
func (s *Service) Unseat(ctx context.Context, tableID int64) (*domain.Table, error) {
	const op = "service.seating.Unseat"

	var freed *domain.Table

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		table, err := lockTable(ctx, tx, tableID)
		if err != nil {
			return err
		}

		if err := validate.Unseat(tableID, table); err != nil {
			return err
		}

		change := domain.Change{
			Kind:          domain.ChangeTableFreed,
			TableID:       tableID,
			ReservationID: *table.ReservationID,
		}

		res, err := lockReservation(ctx, tx, *table.ReservationID)
		if err != nil {
			return err
		}

		if res != nil && res.Status == domain.StatusSeated {
			res, err = tx.Reservations().UpdateStatus(ctx, res.ID, domain.StatusFinished)
			if err != nil {
				return err
			}
		}
		if res != nil {
			change.Date = res.ReservationDate
			change.Status = res.Status
		}

		t, err := tx.Tables().SetAssignment(ctx, tableID, nil)
		if err != nil {
			return err
		}
		freed = t

		after(func(ctx context.Context) {
			s.changed(ctx, change)
		})

		return nil
	})
	metrics.ObserveSeating("unseat", outcome(err))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return freed, nil
}

func (s *Service) changed(ctx context.Context, ch domain.Change, dates ...string) {
	if s.cache != nil {
		if err := s.cache.InvalidateTables(ctx); err != nil {
			s.logger.Warn("failed to invalidate tables cache", "error", err)
		}
		if err := s.cache.InvalidateReservationDates(ctx, append(dates, ch.Date)...); err != nil {
			s.logger.Warn("failed to invalidate reservations cache", "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ch); err != nil {
			s.logger.Warn("failed to publish change", "kind", ch.Kind, "error", err)
		}
	}
}

// lockTable returns nil for a missing table so the validator can report it.
func lockTable(ctx context.Context, tx repository.Repos, id int64) (*domain.Table, error) {
	t, err := tx.Tables().GetForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func lockReservation(ctx context.Context, tx repository.Repos, id int64) (*domain.Reservation, error) {
	r, err := tx.Reservations().GetForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return r, err
}

func outcome(err error) string {
	var verr *validate.Error
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &verr), errors.Is(err, ErrConflict):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
