package mongo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"rentbox/internal/app/middleware"
	"rentbox/internal/app/uow"
	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
)

var (
	_ uow.UoWFactory              = (*Factory)(nil)
	_ uow.UnitOfWork              = (*Unit)(nil)
	_ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
)

type labeledErr struct{ labels []string }

func (e labeledErr) Error() string { return "command failed" }

func (e labeledErr) HasErrorLabel(label string) bool {
	for _, l := range e.labels {
		if l == label {
			return true
		}
	}
	return false
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transient label", err: labeledErr{labels: []string{"TransientTransactionError"}}, want: true},
		{name: "wrapped transient label", err: fmt.Errorf("commit: %w", labeledErr{labels: []string{"TransientTransactionError"}}), want: true},
		{name: "other label", err: labeledErr{labels: []string{"UnknownTransactionCommitResult"}}},
		{name: "guard duplicate key", err: mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}, want: true},
		{name: "plain error", err: errors.New("network down")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isTransient(tc.err))
		})
	}
}

func TestReservationDocumentRoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	res := &domainreservation.Reservation{
		ID:               "res-1",
		Customer:         domainreservation.Customer{Name: "Ada", Email: "ada@example.com", Phone: "555"},
		Range:            daterange.Range{Start: daterange.MustParseDate("2024-06-01"), End: daterange.MustParseDate("2024-06-14")},
		TotalPrice:       money.Must(6000, "CAD"),
		PaymentReference: "cs_1",
		Status:           domainreservation.StatusCompleted,
		CreatedAt:        created,
		UpdatedAt:        created,
	}

	doc := newReservationDocument(res)
	assert.Equal(t, "2024-06-01", doc.StartDate)
	assert.Equal(t, string(domainreservation.StatusCompleted), doc.Status)

	back, err := doc.toAggregate()
	require.NoError(t, err)
	assert.Equal(t, res.Range, back.Range)
	assert.Equal(t, res.TotalPrice, back.TotalPrice)
	assert.Equal(t, res.Customer, back.Customer)
	assert.True(t, back.Occupies())
}

func TestReservationDocumentRejectsUnknownStatus(t *testing.T) {
	doc := reservationDocument{StartDate: "2024-06-01", EndDate: "2024-06-07", Status: "cancelled", TotalCents: 3000, Currency: "CAD"}
	_, err := doc.toAggregate()
	assert.Error(t, err)
}
