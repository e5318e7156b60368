package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/kirinyoku/periodic-tables/internal/domain"
	"github.com/kirinyoku/periodic-tables/internal/events"
	redisx "github.com/kirinyoku/periodic-tables/internal/redis"
	"github.com/kirinyoku/periodic-tables/internal/repository"
	redisrepo "github.com/kirinyoku/periodic-tables/internal/repository/redis"
	"github.com/kirinyoku/periodic-tables/internal/service/validate"
	"github.com/kirinyoku/periodic-tables/internal/uow"
)

type Config struct {
	// Location is the restaurant's timezone for business-hour checks.
	Location *time.Location
	ListTTL  time.Duration
	Now      func() time.Time
}

type Service struct {
	store     repository.Store
	cache     *redisrepo.Cache
	publisher events.Publisher
	limiter   *redisrepo.SlidingWindowLimiter
	uow       *uow.UoW
	logger    *slog.Logger
	cfg       Config
}

// New builds the reservation service. cache, publisher, limiter and logger
// may be nil.
func New(
	store repository.Store,
	cache *redisrepo.Cache,
	publisher events.Publisher,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 30 * time.Second
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store:     store,
		cache:     cache,
		publisher: publisher,
		limiter:   limiter,
		uow:       uow.NewUoW(store),
		logger:    logger,
		cfg:       cfg,
	}
}

func (s *Service) rules() validate.Rules {
	return validate.Rules{Now: s.cfg.Now(), Location: s.cfg.Location}
}

// List returns reservations ordered by date and time. A date restricts the
// result to that day; a mobile number matches by digits anywhere in the
// stored number. Date-only listings are cached.
func (s *Service) List(ctx context.Context, date, mobileNumber string) ([]domain.Reservation, error) {
	const op = "service.reservations.List"

	f := repository.ReservationFilter{Date: date}

	if date != "" {
		if err := validate.Date("date", date); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	if mobileNumber != "" {
		f.MobileNumber = digitsOnly(mobileNumber)
		if f.MobileNumber == "" {
			return []domain.Reservation{}, nil
		}
	}

	load := func(ctx context.Context) ([]domain.Reservation, error) {
		return s.store.Reservations().List(ctx, f)
	}

	var (
		out []domain.Reservation
		err error
	)
	if s.cache != nil && f.Date != "" && f.MobileNumber == "" {
		out, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyReservationsByDate(f.Date), s.cfg.ListTTL, load)
	} else {
		out, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "service.reservations.Get"

	r, err := s.store.Reservations().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ReservationNotFoundError{ReservationID: id})
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return r, nil
}

// Create books a new reservation.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: the request's data object, nil when the body had none.
//   - rlKey: caller identity for rate limiting, empty to skip the limiter.
//
// Returns:
//   - *domain.Reservation: the stored reservation with status booked.
//   - error: *validate.Error for a malformed or out-of-hours reservation.
//   - error: reservations.RateLimitedError when the caller is over the limit.
func (s *Service) Create(ctx context.Context, in *domain.Reservation, rlKey string) (*domain.Reservation, error) {
	const op = "service.reservations.Create"

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w", op, RateLimitedError{RetryAfter: retry})
		}
	}

	res, err := validate.ReservationCreate(in, s.rules())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var created *domain.Reservation

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		r, err := tx.Reservations().Create(ctx, res)
		if err != nil {
			return err
		}
		created = r

		after(func(ctx context.Context) {
			s.changed(ctx, domain.Change{
				Kind:          domain.ChangeReservationCreated,
				ReservationID: r.ID,
				Date:          r.ReservationDate,
				Status:        r.Status,
			})
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return created, nil
}

// Update replaces the editable fields of a booked reservation.
func (s *Service) Update(ctx context.Context, id int64, in *domain.Reservation) (*domain.Reservation, error) {
	const op = "service.reservations.Update"

	res, err := validate.Reservation(in, s.rules())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	res.ID = id

	var updated *domain.Reservation

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		cur, err := tx.Reservations().GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ReservationNotFoundError{ReservationID: id}
			}
			return err
		}

		if err := validate.Editable(cur); err != nil {
			return err
		}

		r, err := tx.Reservations().Update(ctx, res)
		if err != nil {
			return err
		}
		updated = r

		after(func(ctx context.Context) {
			s.changed(ctx, domain.Change{
				Kind:          domain.ChangeReservationUpdated,
				ReservationID: r.ID,
				Date:          r.ReservationDate,
				Status:        r.Status,
			}, cur.ReservationDate)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return updated, nil
}

// UpdateStatus moves a reservation along the state machine. Only
// cancellation is accepted here; seating goes through the tables.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Reservation, error) {
	const op = "service.reservations.UpdateStatus"

	var updated *domain.Reservation

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		cur, err := tx.Reservations().GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ReservationNotFoundError{ReservationID: id}
			}
			return err
		}

		next, err := validate.StatusChange(cur.Status, status)
		if err != nil {
			return err
		}

		r, err := tx.Reservations().UpdateStatus(ctx, id, next)
		if err != nil {
			return err
		}
		updated = r

		after(func(ctx context.Context) {
			s.changed(ctx, domain.Change{
				Kind:          domain.ChangeReservationStatus,
				ReservationID: r.ID,
				Date:          r.ReservationDate,
				Status:        r.Status,
			})
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return updated, nil
}

// changed drops the cached listings for the affected dates and notifies
// listeners. Failures here never undo a committed write.
func (s *Service) changed(ctx context.Context, ch domain.Change, otherDates ...string) {
	if s.cache != nil {
		if err := s.cache.InvalidateReservationDates(ctx, append(otherDates, ch.Date)...); err != nil {
			s.logger.Warn("failed to invalidate reservations cache", "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ch); err != nil {
			s.logger.Warn("failed to publish change", "kind", ch.Kind, "error", err)
		}
	}
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
