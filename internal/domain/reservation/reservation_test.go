package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
)

var now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func pending(t *testing.T) *Reservation {
	t.Helper()
	r, err := NewReservation(CreateParams{
		ID:         "res-1",
		Customer:   Customer{Name: " Ada ", Email: "ada@example.com"},
		Range:      daterange.Range{Start: daterange.MustParseDate("2024-06-01"), End: daterange.MustParseDate("2024-06-07")},
		TotalPrice: money.Must(3000, "CAD"),
		CreatedAt:  now,
	})
	require.NoError(t, err)
	return r
}

func TestNewReservationStartsPending(t *testing.T) {
	r := pending(t)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, "Ada", r.Customer.Name)
	assert.False(t, r.Occupies())

	evs := r.Drain()
	require.Len(t, evs, 1)
	assert.Equal(t, "reservation.requested", evs[0].EventName())
	assert.Empty(t, r.PendingEvents())
}

func TestNewReservationRequiresCustomer(t *testing.T) {
	_, err := NewReservation(CreateParams{
		Customer:   Customer{Name: "Ada"},
		Range:      daterange.Range{Start: daterange.MustParseDate("2024-06-01"), End: daterange.MustParseDate("2024-06-07")},
		TotalPrice: money.Must(3000, "CAD"),
	})
	assert.ErrorIs(t, err, ErrCustomerRequired)
}

func TestAttachPaymentReferenceOnce(t *testing.T) {
	r := pending(t)
	require.NoError(t, r.AttachPaymentReference("cs_1", now))
	require.NoError(t, r.AttachPaymentReference("cs_1", now), "same reference is accepted again")
	assert.ErrorIs(t, r.AttachPaymentReference("cs_2", now), ErrReferenceAssigned)
	assert.ErrorIs(t, r.AttachPaymentReference(" ", now), ErrReferenceRequired)
}

func TestCompleteIsOneWay(t *testing.T) {
	r := pending(t)
	require.NoError(t, r.AttachPaymentReference("cs_1", now))
	require.NoError(t, r.Complete("pi_1", now.Add(time.Minute)))

	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, "pi_1", r.PaymentIntent)
	assert.True(t, r.Occupies())
	assert.True(t, r.UpdatedAt.After(r.CreatedAt))

	assert.ErrorIs(t, r.Complete("pi_1", now), ErrInvalidState)
	assert.ErrorIs(t, r.Expire(now), ErrInvalidState)
	assert.ErrorIs(t, r.AttachPaymentReference("cs_1", now), ErrInvalidState)
}

func TestExpireIsTerminal(t *testing.T) {
	r := pending(t)
	require.NoError(t, r.Expire(now))
	assert.Equal(t, StatusExpired, r.Status)
	assert.False(t, r.Occupies())
	assert.ErrorIs(t, r.Complete("", now), ErrInvalidState)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	s, err = ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, Status(""), s)

	_, err = ParseStatus("cancelled")
	assert.Error(t, err)
}
