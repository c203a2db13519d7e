package fake

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbox/internal/app/policies"
)

func TestCreateCheckoutSessionRemembersRequest(t *testing.T) {
	gw := NewGateway("http://localhost:3000/")
	req := policies.CheckoutRequest{ReservationID: "res-1", CustomerEmail: "ada@example.com", Weeks: 2}

	s, err := gw.CreateCheckoutSession(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.Reference, "fake_cs_"))
	assert.Equal(t, "http://localhost:3000/booking/success?session_id="+s.Reference, s.URL)

	got, ok := gw.Session(s.Reference)
	require.True(t, ok)
	assert.Equal(t, req, got)

	_, ok = gw.Session("fake_cs_unknown")
	assert.False(t, ok)
}

func TestCreateCheckoutSessionHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGateway("").CreateCheckoutSession(ctx, policies.CheckoutRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}
