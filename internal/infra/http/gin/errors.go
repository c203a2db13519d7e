package ginserver

import (
	"context"
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentbox/internal/app/middleware"
	"rentbox/internal/app/policies"
	"rentbox/internal/app/services/auth"
	"rentbox/internal/app/services/payments"
	domainavailability "rentbox/internal/domain/availability"
	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
)

// statusFor maps application errors onto HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainavailability.ErrOverlap),
		errors.Is(err, domainavailability.ErrDateBlocked),
		errors.Is(err, domainavailability.ErrDateAlreadyBlocked),
		errors.Is(err, domainreservation.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, middleware.ErrInvalidInput),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrInvalidDate),
		errors.Is(err, domainavailability.ErrMinimumStay),
		errors.Is(err, domainavailability.ErrPastDate),
		errors.Is(err, domainreservation.ErrCustomerRequired),
		errors.Is(err, payments.ErrUnsupportedEvent):
		return http.StatusBadRequest
	case errors.Is(err, domainreservation.ErrNotFound),
		errors.Is(err, domainavailability.ErrBlockedDateNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenRequired):
		return http.StatusUnauthorized
	case errors.Is(err, middleware.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, policies.ErrGateway):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": "..."}; internal failures never leak their text.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	switch {
	case errors.Is(err, auth.ErrAdminDisabled):
		msg = "admin access not configured"
	case errors.Is(err, policies.ErrNotConfigured):
		msg = "not configured"
	case errors.Is(err, policies.ErrGateway):
		msg = "payment provider unavailable"
	case status == http.StatusInternalServerError:
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
