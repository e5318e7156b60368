package httpgin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/periodic-tables/internal/metrics"
	"github.com/kirinyoku/periodic-tables/internal/repository"
	redisrepo "github.com/kirinyoku/periodic-tables/internal/repository/redis"
	"github.com/kirinyoku/periodic-tables/internal/service"
	"github.com/kirinyoku/periodic-tables/internal/service/reservations"
	"github.com/kirinyoku/periodic-tables/internal/service/seating"
	"github.com/kirinyoku/periodic-tables/internal/service/tables"
	"github.com/kirinyoku/periodic-tables/internal/service/validate"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// ChangeSubscriber feeds the /events stream.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, msg redisrepo.ChangeMessage)) error
}

// NewRouter builds the HTTP API. idem and changes may be nil, which turns
// off idempotent replays and the live event stream.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	changes ChangeSubscriber,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), MetricsMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/events", handleEvents(changes, logger))

	tbl := r.Group("/tables")
	{
		tbl.GET("", handleListTables(svcs))
		tbl.POST("", handleCreateTable(svcs))
		tbl.GET("/:table_id", handleGetTable(svcs))
		tbl.PUT("/:table_id/seat", handleSeat(svcs))
		tbl.DELETE("/:table_id/seat", handleUnseat(svcs))
	}

	res := r.Group("/reservations")
	{
		res.GET("", handleListReservations(svcs))
		res.POST("", handleCreateReservation(svcs, idem))
		res.GET("/:reservation_id", handleGetReservation(svcs))
		res.PUT("/:reservation_id", handleUpdateReservation(svcs))
		res.PUT("/:reservation_id/status", handleUpdateStatus(svcs))
	}

	admin := r.Group("/admin")
	{
		admin.GET("/consistency", handleCheckConsistency(svcs))
		admin.POST("/consistency/repair", handleRepairConsistency(svcs))
	}

	return r
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// bindJSON decodes the body into req. An empty body leaves req zero so the
// missing data is reported by the usual "data is required." checks.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return false
	}
	return true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondData(c *gin.Context, status int, v any) {
	c.JSON(status, gin.H{"data": v})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		verr          *validate.Error
		tableNF       tables.TableNotFoundError
		reservationNF reservations.ReservationNotFoundError
		rateLimited   reservations.RateLimitedError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(verr.Status, ErrorResponse{Error: verr.Message})
	case errors.As(err, &tableNF):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: tableNF.Error()})
	case errors.As(err, &reservationNF):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: reservationNF.Error()})
	case errors.As(err, &rateLimited):
		secs := int(math.Ceil(rateLimited.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: rateLimited.Error()})
	case errors.Is(err, seating.ErrConflict), errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: seating.ErrConflict.Error()})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
