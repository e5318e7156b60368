package tables

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/periodic-tables/internal/domain"
	"github.com/kirinyoku/periodic-tables/internal/events"
	redisx "github.com/kirinyoku/periodic-tables/internal/redis"
	"github.com/kirinyoku/periodic-tables/internal/repository"
	redisrepo "github.com/kirinyoku/periodic-tables/internal/repository/redis"
	"github.com/kirinyoku/periodic-tables/internal/service/validate"
	"github.com/kirinyoku/periodic-tables/internal/uow"
)

type Config struct {
	ListTTL time.Duration
}

type Service struct {
	store     repository.Store
	cache     *redisrepo.Cache
	publisher events.Publisher
	uow       *uow.UoW
	logger    *slog.Logger
	cfg       Config
}

// New builds the table service. cache, publisher and logger may be nil.
func New(
	store repository.Store,
	cache *redisrepo.Cache,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 30 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:     store,
		cache:     cache,
		publisher: publisher,
		uow:       uow.NewUoW(store),
		logger:    logger,
		cfg:       cfg,
	}
}

// List returns every table ordered by name, served from the cache when
// one is configured.
func (s *Service) List(ctx context.Context) ([]domain.Table, error) {
	const op = "service.tables.List"

	load := func(ctx context.Context) ([]domain.Table, error) {
		return s.store.Tables().List(ctx)
	}

	var (
		tables []domain.Table
		err    error
	)
	if s.cache != nil {
		tables, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyTables(), s.cfg.ListTTL, load)
	} else {
		tables, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return tables, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Table, error) {
	const op = "service.tables.Get"

	t, err := s.store.Tables().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, TableNotFoundError{TableID: id})
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return t, nil
}

// Create validates the decoded "data" object and stores a new free table.
//
// Parameters:
//   - ctx: request-scoped context.
//   - data: the request's data object, nil when the body had none.
//
// Returns:
//   - *domain.Table: the stored table, echoing the input name and capacity.
//   - error: *validate.Error when the payload breaks a table rule.
func (s *Service) Create(ctx context.Context, data map[string]any) (*domain.Table, error) {
	const op = "service.tables.Create"

	in, err := validate.TableCreate(data)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var created *domain.Table

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		t, err := tx.Tables().Create(ctx, in)
		if err != nil {
			return err
		}
		created = t

		after(func(ctx context.Context) {
			s.changed(ctx, domain.Change{Kind: domain.ChangeTableCreated, TableID: t.ID})
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return created, nil
}

func (s *Service) changed(ctx context.Context, ch domain.Change) {
	if s.cache != nil {
		if err := s.cache.InvalidateTables(ctx); err != nil {
			s.logger.Warn("failed to invalidate tables cache", "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ch); err != nil {
			s.logger.Warn("failed to publish change", "kind", ch.Kind, "error", err)
		}
	}
}
