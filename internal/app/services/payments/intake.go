package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/handlers/reservations"
	"rentbox/internal/app/middleware"
	"rentbox/internal/app/policies"
)

var ErrUnsupportedEvent = errors.New("payments: unsupported event type")

const OutcomeDuplicate = "duplicate"

// Inbox deduplicates deliveries by event ID.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Intake turns gateway-neutral payment events into reservation commands.
// It is shared by the webhook endpoints and the Kafka consumer.
type Intake struct {
	Commands  commands.Bus
	Inbox     Inbox
	Validator middleware.Validator
	Logger    *slog.Logger
}

func (i *Intake) Process(ctx context.Context, ev policies.PaymentEvent) (*reservations.PaymentEventResult, error) {
	if i.Commands == nil {
		return nil, policies.ErrNotConfigured
	}
	if !knownKind(ev.Kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, ev.Kind)
	}
	if i.Validator != nil {
		if err := i.Validator.Validate(ctx, ev); err != nil {
			return nil, err
		}
	}

	if i.Inbox != nil && ev.ID != "" {
		seen, err := i.Inbox.Seen(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		if seen {
			i.log().Info("payment event already processed", "event_id", ev.ID, "type", ev.Kind)
			return &reservations.PaymentEventResult{Outcome: OutcomeDuplicate}, nil
		}
	}

	result, err := i.dispatch(ctx, ev)
	if err != nil {
		if i.Inbox != nil && ev.ID != "" {
			if ferr := i.Inbox.Forget(ctx, ev.ID); ferr != nil {
				i.log().Warn("inbox forget failed", "event_id", ev.ID, "error", ferr)
			}
		}
		i.log().Error("payment event failed", "event_id", ev.ID, "type", ev.Kind, "reference", ev.PaymentReference, "error", err)
		return nil, err
	}
	i.log().Info("payment event processed", "event_id", ev.ID, "type", ev.Kind, "outcome", result.Outcome)
	return result, nil
}

func (i *Intake) dispatch(ctx context.Context, ev policies.PaymentEvent) (*reservations.PaymentEventResult, error) {
	switch ev.Kind {
	case policies.PaymentCompleted:
		return commands.Dispatch[reservations.MarkCompletedCommand, *reservations.PaymentEventResult](ctx, i.Commands, reservations.MarkCompletedCommand{
			EventID:          ev.ID,
			PaymentReference: ev.PaymentReference,
			PaymentIntent:    ev.PaymentIntent,
		})
	default:
		return commands.Dispatch[reservations.MarkExpiredCommand, *reservations.PaymentEventResult](ctx, i.Commands, reservations.MarkExpiredCommand{
			EventID:          ev.ID,
			PaymentReference: ev.PaymentReference,
		})
	}
}

func knownKind(kind policies.PaymentEventKind) bool {
	return kind == policies.PaymentCompleted || kind == policies.PaymentExpired
}

func (i *Intake) log() *slog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return slog.Default()
}
