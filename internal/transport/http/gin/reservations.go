package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redisx "github.com/kirinyoku/periodic-tables/internal/redis"
	redisrepo "github.com/kirinyoku/periodic-tables/internal/repository/redis"
	"github.com/kirinyoku/periodic-tables/internal/service"
)

// @Summary  List reservations
// @Tags     reservations
// @Produce  json
// @Param    date           query     string  false  "YYYY-MM-DD"
// @Param    mobile_number  query     string  false  "digits matched anywhere in the number"
// @Success  200            {object}  ReservationsResponse
// @Failure  400            {object}  ErrorResponse
// @Router   /reservations [get]
func handleListReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Reservations.List(
			c.Request.Context(),
			c.Query("date"),
			c.Query("mobile_number"),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeDataWithETag(c, list)
	}
}

// @Summary  Create reservation (idempotent)
// @Tags     reservations
// @Accept   json
// @Produce  json
// @Param    Idempotency-Key  header    string              false  "replay key"
// @Param    req              body      ReservationRequest  true   "reservation"
// @Success  201              {object}  ReservationResponse
// @Failure  400              {object}  ErrorResponse
// @Failure  409              {object}  ErrorResponse "idempotency key in progress"
// @Failure  429              {object}  ErrorResponse "rate limited"
// @Router   /reservations [post]
func handleCreateReservation(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReservationRequest
		if !bindJSON(c, &req) {
			return
		}

		in, err := req.Data.toDomain()
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisx.KeyIdempotency("reservations", idemKey)

			if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		created, err := svcs.Reservations.Create(ctx, in, "ip:"+c.ClientIP())
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		body, err := json.Marshal(ReservationResponse{Data: *created})
		if err != nil {
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			_ = idem.SaveResult(ctx, idemStorageKey, string(body))
			c.Header("Idempotency-Key", idemKey)
		}

		c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
	}
}

// @Summary  Get reservation
// @Tags     reservations
// @Produce  json
// @Param    reservation_id  path      int  true  "Reservation ID"
// @Success  200             {object}  ReservationResponse
// @Failure  404             {object}  ErrorResponse
// @Router   /reservations/{reservation_id} [get]
func handleGetReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "reservation_id")
		if !ok {
			return
		}

		r, err := svcs.Reservations.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		respondData(c, http.StatusOK, r)
	}
}

// @Summary  Update a booked reservation
// @Tags     reservations
// @Accept   json
// @Produce  json
// @Param    reservation_id  path      int                 true  "Reservation ID"
// @Param    req             body      ReservationRequest  true  "reservation"
// @Success  200             {object}  ReservationResponse
// @Failure  400             {object}  ErrorResponse
// @Failure  404             {object}  ErrorResponse
// @Router   /reservations/{reservation_id} [put]
func handleUpdateReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "reservation_id")
		if !ok {
			return
		}

		var req ReservationRequest
		if !bindJSON(c, &req) {
			return
		}

		in, err := req.Data.toDomain()
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		r, err := svcs.Reservations.Update(c.Request.Context(), id, in)
		if err != nil {
			respondErr(c, err)
			return
		}

		respondData(c, http.StatusOK, r)
	}
}

// @Summary  Change reservation status
// @Tags     reservations
// @Accept   json
// @Produce  json
// @Param    reservation_id  path      int            true  "Reservation ID"
// @Param    req             body      StatusRequest  true  "status"
// @Success  200             {object}  ReservationResponse
// @Failure  400             {object}  ErrorResponse
// @Failure  404             {object}  ErrorResponse
// @Router   /reservations/{reservation_id}/status [put]
func handleUpdateStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "reservation_id")
		if !ok {
			return
		}

		var req StatusRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.Data == nil {
			badRequest(c, "data is required.")
			return
		}

		r, err := svcs.Reservations.UpdateStatus(c.Request.Context(), id, req.Data.Status)
		if err != nil {
			respondErr(c, err)
			return
		}

		respondData(c, http.StatusOK, r)
	}
}
