package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/propagation"

	"rentbox/internal/app/handlers/reservations"
	"rentbox/internal/app/middleware"
	"rentbox/internal/app/policies"
	"rentbox/internal/app/services/payments"
)

type PaymentProcessor interface {
	Process(ctx context.Context, ev policies.PaymentEvent) (*reservations.PaymentEventResult, error)
}

// PaymentEventHandler consumes gateway-neutral payment events, either bare
// JSON or wrapped in a CloudEvents envelope.
type PaymentEventHandler struct {
	Processor PaymentProcessor
	Logger    *slog.Logger
}

type cloudEvent struct {
	SpecVersion string          `json:"specversion"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Data        json.RawMessage `json:"data"`
	TraceParent string          `json:"traceparent"`
}

func (h PaymentEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = extractTrace(ctx, msg)
	ev, err := decodePaymentEvent(msg.Value)
	if err != nil {
		h.log().Warn("payment event undecodable, skipping", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	_, err = h.Processor.Process(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, payments.ErrUnsupportedEvent), errors.Is(err, middleware.ErrInvalidInput):
		h.log().Warn("payment event rejected, skipping", "event_id", ev.ID, "type", ev.Kind, "error", err)
		return nil
	default:
		return err
	}
}

func decodePaymentEvent(raw []byte) (policies.PaymentEvent, error) {
	var envelope cloudEvent
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return policies.PaymentEvent{}, err
	}
	var ev policies.PaymentEvent
	if envelope.SpecVersion == "" {
		if err := json.Unmarshal(raw, &ev); err != nil {
			return policies.PaymentEvent{}, err
		}
		return ev, nil
	}
	if len(envelope.Data) == 0 {
		return policies.PaymentEvent{}, fmt.Errorf("cloudevent %s has no data", envelope.ID)
	}
	if err := json.Unmarshal(envelope.Data, &ev); err != nil {
		return policies.PaymentEvent{}, err
	}
	if ev.ID == "" {
		ev.ID = envelope.ID
	}
	if ev.Kind == "" {
		ev.Kind = policies.PaymentEventKind(trimVersion(envelope.Type))
	}
	return ev, nil
}

func trimVersion(t string) string {
	if n := len(t); n > 3 && t[n-3:] == ".v1" {
		return t[:n-3]
	}
	return t
}

func extractTrace(ctx context.Context, msg *sarama.ConsumerMessage) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		carrier[string(h.Key)] = string(h.Value)
	}
	return propagation.TraceContext{}.Extract(ctx, carrier)
}

func (h PaymentEventHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = PaymentEventHandler{}
