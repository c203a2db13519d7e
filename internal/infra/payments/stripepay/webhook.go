package stripepay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"rentbox/internal/app/policies"
)

var (
	ErrSignature = errors.New("stripe: webhook signature invalid")
	// ErrIgnored marks events that are understood but carry no reservation outcome.
	ErrIgnored = errors.New("stripe: event ignored")
)

// WebhookVerifier checks signatures and maps Checkout events to payment events.
type WebhookVerifier struct {
	Secret string
}

func (v WebhookVerifier) Translate(payload []byte, signature string) (policies.PaymentEvent, error) {
	if v.Secret == "" {
		return policies.PaymentEvent{}, fmt.Errorf("stripe: %w: webhook secret missing", policies.ErrNotConfigured)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return policies.PaymentEvent{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return translate(event)
}

func translate(event stripe.Event) (policies.PaymentEvent, error) {
	var kind policies.PaymentEventKind
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		kind = policies.PaymentCompleted
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		kind = policies.PaymentExpired
	default:
		return policies.PaymentEvent{}, fmt.Errorf("%w: %s", ErrIgnored, event.Type)
	}
	if event.Data == nil {
		return policies.PaymentEvent{}, fmt.Errorf("%w: %s without data", ErrIgnored, event.Type)
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return policies.PaymentEvent{}, err
	}
	// completed with a delayed payment method: wait for async_payment_succeeded
	if kind == policies.PaymentCompleted && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		return policies.PaymentEvent{}, fmt.Errorf("%w: %s unpaid", ErrIgnored, sess.ID)
	}
	ev := policies.PaymentEvent{
		ID:               event.ID,
		Kind:             kind,
		PaymentReference: sess.ID,
	}
	if sess.PaymentIntent != nil {
		ev.PaymentIntent = sess.PaymentIntent.ID
	}
	return ev, nil
}
