package policies

import (
	"context"
	"errors"

	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
)

var (
	// ErrGateway wraps failures of the payment processor.
	ErrGateway = errors.New("payment gateway failure")
	// ErrNotConfigured is returned by collaborators that were not set up for this deployment.
	ErrNotConfigured = errors.New("not configured")
)

type CheckoutRequest struct {
	ReservationID string
	CustomerEmail string
	Range         daterange.Range
	Weeks         int
	WeeklyRate    money.Money
	Total         money.Money
}

type CheckoutSession struct {
	Reference string
	URL       string
}

// PaymentGateway opens hosted checkout sessions with the payment processor.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
}

// PaymentEventKind is the gateway-neutral outcome of a checkout session.
type PaymentEventKind string

const (
	PaymentCompleted PaymentEventKind = "payment.completed"
	PaymentExpired   PaymentEventKind = "payment.expired"
)

// PaymentEvent is what the processor reports asynchronously about a session.
type PaymentEvent struct {
	ID               string           `json:"id" validate:"required"`
	Kind             PaymentEventKind `json:"type" validate:"required,oneof=payment.completed payment.expired"`
	PaymentReference string           `json:"payment_reference" validate:"required"`
	PaymentIntent    string           `json:"payment_intent,omitempty"`
}
