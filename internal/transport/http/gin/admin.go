package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/periodic-tables/internal/service"
)

// @Summary  Report seating inconsistencies
// @Tags     admin
// @Produce  json
// @Success  200  {object}  ConsistencyResponse
// @Router   /admin/consistency [get]
func handleCheckConsistency(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svcs.Seating.Check(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		respondData(c, http.StatusOK, report)
	}
}

// @Summary  Repair seating inconsistencies
// @Tags     admin
// @Produce  json
// @Success  200  {object}  ConsistencyResponse
// @Router   /admin/consistency/repair [post]
func handleRepairConsistency(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svcs.Seating.Repair(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		respondData(c, http.StatusOK, report)
	}
}
