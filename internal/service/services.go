package service

import (
	"log/slog"

	"github.com/kirinyoku/periodic-tables/internal/events"
	"github.com/kirinyoku/periodic-tables/internal/repository"
	redisrepo "github.com/kirinyoku/periodic-tables/internal/repository/redis"
	"github.com/kirinyoku/periodic-tables/internal/service/reservations"
	"github.com/kirinyoku/periodic-tables/internal/service/seating"
	"github.com/kirinyoku/periodic-tables/internal/service/tables"
)

type Services struct {
	Tables       *tables.Service
	Reservations *reservations.Service
	Seating      *seating.Service
}

type Config struct {
	Tables       tables.Config
	Reservations reservations.Config
}

// NewServices wires the services over one store. cache, publisher and
// limiter are optional.
func NewServices(
	store repository.Store,
	cache *redisrepo.Cache,
	publisher events.Publisher,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Services {
	return &Services{
		Tables:       tables.New(store, cache, publisher, logger, cfg.Tables),
		Reservations: reservations.New(store, cache, publisher, limiter, logger, cfg.Reservations),
		Seating:      seating.New(store, cache, publisher, logger),
	}
}
