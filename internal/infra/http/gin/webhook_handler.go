package ginserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	reservationsapp "rentbox/internal/app/handlers/reservations"
	"rentbox/internal/app/policies"
	"rentbox/internal/infra/payments/stripepay"
)

const maxWebhookBody = 64 << 10

// PaymentProcessor applies one gateway-neutral payment event. payments.Intake satisfies it.
type PaymentProcessor interface {
	Process(ctx context.Context, ev policies.PaymentEvent) (*reservationsapp.PaymentEventResult, error)
}

// StripeTranslator verifies a Stripe delivery and maps it to a payment event.
type StripeTranslator interface {
	Translate(payload []byte, signature string) (policies.PaymentEvent, error)
}

type WebhookHandler struct {
	Intake PaymentProcessor
	// Events verifies and translates Stripe deliveries.
	Events StripeTranslator
	// Token protects the generic intake. An empty token is accepted only with AllowUnsigned.
	Token         string
	AllowUnsigned bool
	Logger        *slog.Logger
}

func (h WebhookHandler) Stripe(c *gin.Context) {
	if h.Events == nil || h.Intake == nil {
		writeError(c, policies.ErrNotConfigured)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, err)
		return
	}
	ev, err := h.Events.Translate(payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, stripepay.ErrIgnored):
		c.JSON(http.StatusOK, gin.H{"received": true, "outcome": "ignored"})
		return
	case errors.Is(err, policies.ErrNotConfigured):
		writeError(c, err)
		return
	case err != nil:
		h.log().Warn("stripe webhook rejected", "error", err)
		badRequest(c, err)
		return
	}
	h.process(c, ev)
}

// Payments accepts {"id","type","payment_reference","payment_intent"} from the fake gateway or operators.
func (h WebhookHandler) Payments(c *gin.Context) {
	if h.Intake == nil {
		writeError(c, policies.ErrNotConfigured)
		return
	}
	if h.Token == "" && !h.AllowUnsigned {
		writeError(c, policies.ErrNotConfigured)
		return
	}
	if h.Token != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Webhook-Token")), []byte(h.Token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
		return
	}
	var ev policies.PaymentEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		badRequest(c, err)
		return
	}
	h.process(c, ev)
}

func (h WebhookHandler) process(c *gin.Context, ev policies.PaymentEvent) {
	result, err := h.Intake.Process(c.Request.Context(), ev)
	if err != nil {
		// a non-2xx answer makes the provider redeliver
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": result.Outcome, "reservation_id": result.ReservationID})
}

func (h WebhookHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ WebhookHTTP = WebhookHandler{}
