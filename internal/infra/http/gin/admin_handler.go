package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/dto"
	availabilityapp "rentbox/internal/app/handlers/availability"
	reservationsapp "rentbox/internal/app/handlers/reservations"
	"rentbox/internal/app/queries"
	"rentbox/internal/app/services/auth"
	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
)

type AdminHandler struct {
	Auth     *auth.Service
	Commands commands.Bus
	Queries  queries.Bus
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h AdminHandler) Login(c *gin.Context) {
	if h.Auth == nil {
		writeError(c, auth.ErrAdminDisabled)
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Auth.Login(c.Request.Context(), req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) Reservations(c *gin.Context) {
	status, err := domainreservation.ParseStatus(c.Query("status"))
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := queries.Ask[reservationsapp.ListReservationsQuery, dto.ReservationList](c.Request.Context(), h.Queries, reservationsapp.ListReservationsQuery{Status: status})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) BlockedDates(c *gin.Context) {
	result, err := queries.Ask[availabilityapp.ListBlockedDatesQuery, dto.BlockedDateList](c.Request.Context(), h.Queries, availabilityapp.ListBlockedDatesQuery{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type blockDateRequest struct {
	Date   daterange.Date `json:"date"`
	Reason string         `json:"reason"`
}

func (h AdminHandler) AddBlockedDate(c *gin.Context) {
	var req blockDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := availabilityapp.AddBlockedDateCommand{Date: req.Date, Reason: strings.TrimSpace(req.Reason)}
	result, err := commands.Dispatch[availabilityapp.AddBlockedDateCommand, dto.BlockedDate](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AdminHandler) RemoveBlockedDate(c *gin.Context) {
	date, err := daterange.ParseDate(c.Param("date"))
	if err != nil {
		badRequest(c, err)
		return
	}
	if _, err := commands.Dispatch[availabilityapp.RemoveBlockedDateCommand, struct{}](c.Request.Context(), h.Commands, availabilityapp.RemoveBlockedDateCommand{Date: date}); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ AdminHTTP = AdminHandler{}
