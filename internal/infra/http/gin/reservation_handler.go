package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/dto"
	reservationsapp "rentbox/internal/app/handlers/reservations"
	"rentbox/internal/app/queries"
	"rentbox/internal/domain/shared/daterange"
)

type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createReservationRequest struct {
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	CustomerPhone string         `json:"customer_phone"`
	Notes         string         `json:"notes"`
	StartDate     daterange.Date `json:"start_date"`
	EndDate       daterange.Date `json:"end_date"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := reservationsapp.CreateReservationCommand{
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		Notes:           req.Notes,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	result, err := commands.Dispatch[reservationsapp.CreateReservationCommand, *reservationsapp.CreateReservationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReservationHandler) ByPaymentReference(c *gin.Context) {
	query := reservationsapp.GetByPaymentReferenceQuery{Reference: strings.TrimSpace(c.Param("reference"))}
	result, err := queries.Ask[reservationsapp.GetByPaymentReferenceQuery, dto.ReservationConfirmation](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ReservationHTTP = ReservationHandler{}
