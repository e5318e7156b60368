package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/periodic-tables/internal/config"
	"github.com/kirinyoku/periodic-tables/internal/events"
	"github.com/kirinyoku/periodic-tables/internal/postgres"
	redisx "github.com/kirinyoku/periodic-tables/internal/redis"
	"github.com/kirinyoku/periodic-tables/internal/repository"
	"github.com/kirinyoku/periodic-tables/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/periodic-tables/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/periodic-tables/internal/repository/redis"
	"github.com/kirinyoku/periodic-tables/internal/service"
	"github.com/kirinyoku/periodic-tables/internal/service/reservations"
	httpgin "github.com/kirinyoku/periodic-tables/internal/transport/http/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	services   *service.Services
	httpServer *http.Server
	closers    []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var (
		cache     *redisrepo.Cache
		limiter   *redisrepo.SlidingWindowLimiter
		idem      *redisrepo.IdempotencyStore
		changes   httpgin.ChangeSubscriber
		publisher events.Fanout
	)

	if cfg.Redis.Addr != "" {
		rdb, err := redisx.New(ctx, redisx.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)

		pubsub := redisrepo.NewChangesPubSub(rdb)

		cache = redisrepo.New(rdb)
		limiter = newLimiter(rdb, cfg.RateLimit)
		idem = redisrepo.NewIdempotencyStore(rdb, 24*time.Hour)
		changes = pubsub
		publisher = append(publisher, pubsub)
	} else {
		logger.Warn("REDIS_ADDR is empty; caching, rate limiting and live events are disabled")
	}

	if cfg.AMQP.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQP.URL, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize rabbitmq: %w", err)
		}
		a.closers = append(a.closers, amqpPub.Close)
		publisher = append(publisher, amqpPub)
	}

	a.services = service.NewServices(store, cache, publisher, limiter, logger, service.Config{
		Reservations: reservations.Config{Location: cfg.Restaurant.Location},
	})

	router := httpgin.NewRouter(a.services, idem, changes, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	switch a.cfg.Storage {
	case config.StorageMemory:
		a.logger.Warn("using in-memory storage; data is lost on restart")
		return memory.NewStore(), nil
	case config.StoragePostgres:
		pool, err := postgres.New(ctx, postgres.Config{
			DSN:      a.cfg.Postgres.DSN(),
			MaxConns: a.cfg.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, closePool(pool))

		store := postgresrepo.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", a.cfg.Storage)
	}
}

func newLimiter(rdb *redis.Client, cfg config.RateLimitConfig) *redisrepo.SlidingWindowLimiter {
	if cfg.Limit <= 0 {
		return nil
	}
	return redisrepo.NewSlidingWindowLimiter(rdb, "reservations", cfg.Limit, cfg.Window)
}

func closePool(pool *pgxpool.Pool) func() error {
	return func() error {
		pool.Close()
		return nil
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.Close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	if interval := a.cfg.Restaurant.ReconcileInterval; interval > 0 {
		g.Go(func() error {
			return a.services.Seating.RunReconciler(gCtx, interval)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
