package httpgin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/periodic-tables/internal/repository/redis"
)

// @Summary  Stream committed changes as server-sent events
// @Tags     ops
// @Produce  text/event-stream
// @Success  200
// @Failure  503  {object}  ErrorResponse
// @Router   /events [get]
func handleEvents(changes ChangeSubscriber, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if changes == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "live updates are not enabled"})
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		msgs := make(chan redisrepo.ChangeMessage, 32)
		subErr := make(chan error, 1)

		go func() {
			subErr <- changes.Subscribe(ctx, func(_ context.Context, msg redisrepo.ChangeMessage) {
				select {
				case msgs <- msg:
				default:
					logger.Warn("dropping change for slow event stream", "kind", msg.Change.Kind)
				}
			})
		}()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)
		c.Writer.Flush()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case err := <-subErr:
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("change subscription ended", "error", err)
				}
				return false
			case msg := <-msgs:
				c.SSEvent(string(msg.Change.Kind), msg)
				return true
			}
		})
	}
}
