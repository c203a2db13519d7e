package inbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rentbox/internal/app/services/payments"
)

var _ payments.Inbox = (*Store)(nil)

func TestKeyIsScopedPerConsumer(t *testing.T) {
	webhooks := &Store{consumer: "rentbox-payments"}
	replay := &Store{consumer: "rentbox-replay"}

	assert.Equal(t, "rentbox-payments:evt_1", webhooks.key("evt_1"))
	assert.NotEqual(t, webhooks.key("evt_1"), replay.key("evt_1"))
}
