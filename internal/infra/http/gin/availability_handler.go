package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentbox/internal/app/dto"
	availabilityapp "rentbox/internal/app/handlers/availability"
	"rentbox/internal/app/queries"
	"rentbox/internal/domain/shared/daterange"
)

type AvailabilityHandler struct {
	Queries queries.Bus
}

// Get returns the availability index; from/to (YYYY-MM-DD) add the expanded disabled dates.
func (h AvailabilityHandler) Get(c *gin.Context) {
	var query availabilityapp.GetAvailabilityQuery
	var err error
	if raw := c.Query("from"); raw != "" {
		if query.From, err = daterange.ParseDate(raw); err != nil {
			badRequest(c, err)
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if query.To, err = daterange.ParseDate(raw); err != nil {
			badRequest(c, err)
			return
		}
	}
	if query.From.IsZero() != query.To.IsZero() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must be given together"})
		return
	}
	result, err := queries.Ask[availabilityapp.GetAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
