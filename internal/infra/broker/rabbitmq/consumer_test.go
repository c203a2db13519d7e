package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbox/internal/app/policies"
	"rentbox/internal/infra/notify"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "notification.reservation_confirmed", RoutingKey(policies.TemplateReservationConfirmed))
}

func TestProcessOutcomes(t *testing.T) {
	ok := func(context.Context, notify.Task) error { return nil }
	failing := func(context.Context, notify.Task) error { return errors.New("mail down") }

	task, err := notify.NewTask("t-1", "ada@example.com", policies.TemplateReservationConfirmed, policies.Confirmation{ReservationID: "res-1"})
	require.NoError(t, err)
	body, err := json.Marshal(task)
	require.NoError(t, err)

	ack, requeue, err := process(context.Background(), body, false, ok)
	assert.True(t, ack)
	assert.False(t, requeue)
	assert.NoError(t, err)

	ack, requeue, err = process(context.Background(), body, false, failing)
	assert.False(t, ack)
	assert.True(t, requeue, "first failure is retried")
	assert.Error(t, err)

	_, requeue, _ = process(context.Background(), body, true, failing)
	assert.False(t, requeue, "second failure goes to the dead letter queue")

	ack, requeue, err = process(context.Background(), []byte("{"), false, ok)
	assert.False(t, ack)
	assert.False(t, requeue)
	assert.Error(t, err)
}
