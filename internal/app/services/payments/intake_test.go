package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/handlers/reservations"
	"rentbox/internal/app/middleware"
	"rentbox/internal/app/policies"
	"rentbox/internal/infra/storage/memory"
)

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

func TestProcessRoutesByKind(t *testing.T) {
	var got []commands.Command
	intake := &Intake{
		Commands: busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			got = append(got, cmd)
			return &reservations.PaymentEventResult{Outcome: reservations.OutcomeCompleted}, nil
		}),
		Validator: middleware.NewStructValidator(),
	}

	_, err := intake.Process(context.Background(), policies.PaymentEvent{ID: "e1", Kind: policies.PaymentCompleted, PaymentReference: "cs_1", PaymentIntent: "pi_1"})
	require.NoError(t, err)
	_, err = intake.Process(context.Background(), policies.PaymentEvent{ID: "e2", Kind: policies.PaymentExpired, PaymentReference: "cs_1"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, reservations.MarkCompletedCommand{EventID: "e1", PaymentReference: "cs_1", PaymentIntent: "pi_1"}, got[0])
	assert.Equal(t, reservations.MarkExpiredCommand{EventID: "e2", PaymentReference: "cs_1"}, got[1])
}

func TestProcessRejectsUnknownKinds(t *testing.T) {
	intake := &Intake{Commands: busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		t.Fatal("no command expected")
		return nil, nil
	})}
	_, err := intake.Process(context.Background(), policies.PaymentEvent{ID: "e1", Kind: "charge.refunded", PaymentReference: "cs_1"})
	assert.ErrorIs(t, err, ErrUnsupportedEvent)
}

func TestProcessDeduplicatesAndForgetsFailures(t *testing.T) {
	fail := true
	calls := 0
	intake := &Intake{
		Inbox: memory.NewInbox(),
		Commands: busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			calls++
			if fail {
				return nil, errors.New("store down")
			}
			return &reservations.PaymentEventResult{Outcome: reservations.OutcomeExpired}, nil
		}),
	}
	ev := policies.PaymentEvent{ID: "e1", Kind: policies.PaymentExpired, PaymentReference: "cs_1"}

	_, err := intake.Process(context.Background(), ev)
	require.Error(t, err)

	fail = false
	res, err := intake.Process(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, reservations.OutcomeExpired, res.Outcome)

	res, err = intake.Process(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, 2, calls)
}
