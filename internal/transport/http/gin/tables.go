package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/periodic-tables/internal/service"
)

// @Summary  List tables
// @Tags     tables
// @Produce  json
// @Success  200  {object}  TablesResponse
// @Success  304  "not modified"
// @Router   /tables [get]
func handleListTables(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Tables.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeDataWithETag(c, list)
	}
}

// @Summary  Create table
// @Tags     tables
// @Accept   json
// @Produce  json
// @Param    req  body      CreateTableRequest  true  "table_name and capacity"
// @Success  201  {object}  TableResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /tables [post]
func handleCreateTable(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTableRequest
		if !bindJSON(c, &req) {
			return
		}

		t, err := svcs.Tables.Create(c.Request.Context(), req.Data)
		if err != nil {
			respondErr(c, err)
			return
		}

		respondData(c, http.StatusCreated, t)
	}
}

// @Summary  Get table
// @Tags     tables
// @Produce  json
// @Param    table_id  path      int  true  "Table ID"
// @Success  200       {object}  TableResponse
// @Failure  404       {object}  ErrorResponse
// @Router   /tables/{table_id} [get]
func handleGetTable(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "table_id")
		if !ok {
			return
		}

		t, err := svcs.Tables.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		respondData(c, http.StatusOK, t)
	}
}

// @Summary  Seat a reservation at a table
// @Tags     tables
// @Accept   json
// @Produce  json
// @Param    table_id  path      int          true  "Table ID"
// @Param    req       body      SeatRequest  true  "reservation_id"
// @Success  200       {object}  TableResponse
// @Failure  400       {object}  ErrorResponse "occupied, not booked or over capacity"
// @Failure  404       {object}  ErrorResponse
// @Failure  409       {object}  ErrorResponse
// @Router   /tables/{table_id}/seat [put]
func handleSeat(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "table_id")
		if !ok {
			return
		}

		var req SeatRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.Data == nil {
			badRequest(c, "data is required.")
			return
		}

		t, err := svcs.Seating.Seat(c.Request.Context(), id, req.Data.ReservationID)
		if err != nil {
			respondErr(c, err)
			return
		}

		respondData(c, http.StatusOK, t)
	}
}

// @Summary  Free a table and finish its reservation
// @Tags     tables
// @Produce  json
// @Param    table_id  path      int  true  "Table ID"
// @Success  200       {object}  TableResponse
// @Failure  400       {object}  ErrorResponse "not occupied"
// @Failure  404       {object}  ErrorResponse
// @Router   /tables/{table_id}/seat [delete]
func handleUnseat(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "table_id")
		if !ok {
			return
		}

		t, err := svcs.Seating.Unseat(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		respondData(c, http.StatusOK, t)
	}
}
