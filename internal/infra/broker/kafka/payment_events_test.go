package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbox/internal/app/handlers/reservations"
	"rentbox/internal/app/policies"
	"rentbox/internal/app/services/payments"
)

type processorFunc func(ctx context.Context, ev policies.PaymentEvent) (*reservations.PaymentEventResult, error)

func (f processorFunc) Process(ctx context.Context, ev policies.PaymentEvent) (*reservations.PaymentEventResult, error) {
	return f(ctx, ev)
}

func TestDecodePaymentEventBareJSON(t *testing.T) {
	ev, err := decodePaymentEvent([]byte(`{"id":"evt_1","type":"payment.completed","payment_reference":"cs_1","payment_intent":"pi_1"}`))
	require.NoError(t, err)
	assert.Equal(t, policies.PaymentEvent{ID: "evt_1", Kind: policies.PaymentCompleted, PaymentReference: "cs_1", PaymentIntent: "pi_1"}, ev)
}

func TestDecodePaymentEventCloudEvent(t *testing.T) {
	ev, err := decodePaymentEvent([]byte(`{"specversion":"1.0","id":"ce-9","type":"payment.expired.v1","data":{"payment_reference":"cs_2"}}`))
	require.NoError(t, err)
	assert.Equal(t, "ce-9", ev.ID)
	assert.Equal(t, policies.PaymentExpired, ev.Kind)
	assert.Equal(t, "cs_2", ev.PaymentReference)
}

func TestHandleSkipsPermanentFailures(t *testing.T) {
	calls := 0
	h := PaymentEventHandler{Processor: processorFunc(func(ctx context.Context, ev policies.PaymentEvent) (*reservations.PaymentEventResult, error) {
		calls++
		return nil, payments.ErrUnsupportedEvent
	})}
	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"id":"e","type":"refund"}`)}))
	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`not json`)}))
	assert.Equal(t, 1, calls)
}

func TestHandleSurfacesTransientFailures(t *testing.T) {
	h := PaymentEventHandler{Processor: processorFunc(func(ctx context.Context, ev policies.PaymentEvent) (*reservations.PaymentEventResult, error) {
		return nil, errors.New("database unavailable")
	})}
	err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"id":"e","type":"payment.completed","payment_reference":"cs"}`)})
	assert.Error(t, err)
}
