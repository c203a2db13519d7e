package reservations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/dto"
	"rentbox/internal/app/middleware"
	"rentbox/internal/app/outbox"
	"rentbox/internal/app/policies"
	"rentbox/internal/app/queries"
	"rentbox/internal/app/uow"
	domainavailability "rentbox/internal/domain/availability"
	domainpricing "rentbox/internal/domain/pricing"
	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/infra/storage/memory"
)

var clock = time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

type stubGateway struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, req policies.CheckoutRequest) (policies.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return policies.CheckoutSession{}, g.err
	}
	ref := "cs_" + req.ReservationID
	return policies.CheckoutSession{Reference: ref, URL: "https://pay.example.com/" + ref}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []policies.Confirmation
}

func (n *recordingNotifier) Send(ctx context.Context, to, template string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := data.(policies.Confirmation); ok {
		n.sent = append(n.sent, c)
	}
	return nil
}

type harness struct {
	factory  *memory.Factory
	box      *memory.Outbox
	gateway  *stubGateway
	notifier *recordingNotifier
	commands commands.Bus
	queries  queries.Bus
	create   *CreateReservationHandler
	seq      int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		box:      memory.NewOutbox(),
		gateway:  &stubGateway{},
		notifier: &recordingNotifier{},
	}
	h.factory = memory.NewFactory(memory.NewStore(), h.box)
	now := func() time.Time { return clock }

	h.create = &CreateReservationHandler{
		UoWFactory: h.factory,
		Gateway:    h.gateway,
		Pricing:    domainpricing.Calculator{WeeklyRate: domainpricing.DefaultWeeklyRate},
		Outbox:     h.box,
		Encoder:    outbox.JSONEventEncoder{},
		Now:        now,
		IDGenerator: func() string {
			h.seq++
			return fmt.Sprintf("res-%d", h.seq)
		},
	}
	events := &PaymentEventsHandler{
		UoWFactory: h.factory,
		Notifier:   h.notifier,
		Outbox:     h.box,
		Encoder:    outbox.JSONEventEncoder{},
		Now:        now,
	}

	bus := commands.NewRouter()
	commands.Register[CreateReservationCommand, *CreateReservationResult](bus, h.create)
	commands.Func(bus, events.MarkCompleted)
	commands.Func(bus, events.MarkExpired)
	h.commands = middleware.ChainCommands(bus,
		middleware.Validation(middleware.NewStructValidator()),
		middleware.Idempotency(memory.NewIdempotencyStore(), 0),
		middleware.OutboxFlush(h.box, nil),
		middleware.Transaction(h.factory, nil),
	)

	qbus := queries.NewRouter()
	queries.Register[GetByPaymentReferenceQuery, dto.ReservationConfirmation](qbus, &GetByPaymentReferenceHandler{UoWFactory: h.factory})
	h.queries = qbus
	return h
}

func (h *harness) request(t *testing.T, start, end, key string) (*CreateReservationResult, error) {
	t.Helper()
	return commands.Dispatch[CreateReservationCommand, *CreateReservationResult](context.Background(), h.commands, CreateReservationCommand{
		CustomerName:    "Ada Lovelace",
		CustomerEmail:   "ada@example.com",
		StartDate:       daterange.MustParseDate(start),
		EndDate:         daterange.MustParseDate(end),
		IdempotencyKeyV: key,
	})
}

func (h *harness) complete(t *testing.T, eventID, reference string) *PaymentEventResult {
	t.Helper()
	res, err := commands.Dispatch[MarkCompletedCommand, *PaymentEventResult](context.Background(), h.commands, MarkCompletedCommand{
		EventID:          eventID,
		PaymentReference: reference,
		PaymentIntent:    "pi_" + eventID,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) reservation(t *testing.T, id string) *domainreservation.Reservation {
	t.Helper()
	var out *domainreservation.Reservation
	require.NoError(t, uow.Read(context.Background(), h.factory, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Reservations().ByID(ctx, domainreservation.ID(id))
		return err
	}))
	return out
}

func (h *harness) eventNames() []string {
	var names []string
	for _, rec := range h.box.Pending() {
		names = append(names, rec.Name)
	}
	return names
}

func TestCreateReservationQuotesAndAttachesReference(t *testing.T) {
	h := newHarness(t)

	res, err := h.request(t, "2024-06-01", "2024-06-08", "")
	require.NoError(t, err)
	assert.Equal(t, 8, res.Days)
	assert.Equal(t, 2, res.Weeks)
	assert.Equal(t, int64(6000), res.Total.Amount)
	assert.Equal(t, "CAD", res.Total.Currency)
	assert.Equal(t, "cs_"+res.ReservationID, res.PaymentReference)
	assert.NotEmpty(t, res.CheckoutURL)

	stored := h.reservation(t, res.ReservationID)
	assert.Equal(t, domainreservation.StatusPending, stored.Status)
	assert.Equal(t, res.PaymentReference, stored.PaymentReference)
	assert.Contains(t, h.eventNames(), "reservation.requested")
}

func TestCreateReservationRejectsInvalidRequests(t *testing.T) {
	h := newHarness(t)
	res, err := h.request(t, "2024-06-01", "2024-06-14", "")
	require.NoError(t, err)
	h.complete(t, "evt_1", res.PaymentReference)

	cases := []struct {
		name       string
		start, end string
		want       error
	}{
		{"overlap with completed", "2024-06-10", "2024-06-20", domainavailability.ErrOverlap},
		{"shared boundary day", "2024-06-14", "2024-06-21", domainavailability.ErrOverlap},
		{"short stay", "2024-07-01", "2024-07-05", domainavailability.ErrMinimumStay},
		{"past start", "2024-05-01", "2024-05-20", domainavailability.ErrPastDate},
		{"reversed", "2024-07-10", "2024-07-01", daterange.ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := h.gateway.calls
			_, err := h.request(t, tc.start, tc.end, "")
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, calls, h.gateway.calls, "gateway not contacted")
		})
	}
}

func TestAdjacentRangeIsAccepted(t *testing.T) {
	h := newHarness(t)
	res, err := h.request(t, "2024-06-01", "2024-06-14", "")
	require.NoError(t, err)
	h.complete(t, "evt_1", res.PaymentReference)

	_, err = h.request(t, "2024-06-15", "2024-06-21", "")
	assert.NoError(t, err)
}

func TestPendingReservationsDoNotBlockRequests(t *testing.T) {
	h := newHarness(t)
	_, err := h.request(t, "2024-06-01", "2024-06-14", "")
	require.NoError(t, err)
	_, err = h.request(t, "2024-06-05", "2024-06-12", "")
	assert.NoError(t, err)
}

func TestGatewayFailureLeavesPendingWithoutReference(t *testing.T) {
	h := newHarness(t)
	h.gateway.err = errors.New("connection refused")

	_, err := h.request(t, "2024-06-01", "2024-06-07", "")
	require.ErrorIs(t, err, policies.ErrGateway)

	stored := h.reservation(t, "res-1")
	assert.Equal(t, domainreservation.StatusPending, stored.Status)
	assert.Empty(t, stored.PaymentReference)
}

func TestCreateWithoutGatewayIsNotConfigured(t *testing.T) {
	h := newHarness(t)
	h.create.Gateway = nil
	_, err := h.request(t, "2024-06-01", "2024-06-07", "")
	assert.ErrorIs(t, err, policies.ErrNotConfigured)
}

func TestCreateReplaysIdempotencyKey(t *testing.T) {
	h := newHarness(t)
	first, err := h.request(t, "2024-06-01", "2024-06-07", "key-1")
	require.NoError(t, err)
	second, err := h.request(t, "2024-06-01", "2024-06-07", "key-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, h.gateway.calls)
}

func TestMarkCompletedNotifiesOnceAndIsIdempotent(t *testing.T) {
	h := newHarness(t)
	res, err := h.request(t, "2024-06-01", "2024-06-07", "")
	require.NoError(t, err)

	out := h.complete(t, "evt_1", res.PaymentReference)
	assert.Equal(t, OutcomeCompleted, out.Outcome)
	assert.Equal(t, res.ReservationID, out.ReservationID)

	replay := h.complete(t, "evt_1", res.PaymentReference)
	assert.Equal(t, OutcomeCompleted, replay.Outcome, "same event replays the stored result")

	redelivered := h.complete(t, "evt_2", res.PaymentReference)
	assert.Equal(t, OutcomeAlreadyFinal, redelivered.Outcome)

	stored := h.reservation(t, res.ReservationID)
	assert.Equal(t, domainreservation.StatusCompleted, stored.Status)
	assert.Equal(t, "pi_evt_1", stored.PaymentIntent)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, "ada@example.com", h.notifier.sent[0].CustomerEmail)
	assert.Equal(t, "2024-06-01", h.notifier.sent[0].StartDate)
	assert.Contains(t, h.eventNames(), "reservation.completed")
}

func TestMarkCompletedUnknownReferenceIsAcknowledged(t *testing.T) {
	h := newHarness(t)
	out := h.complete(t, "evt_9", "cs_missing")
	assert.Equal(t, OutcomeUnknownReference, out.Outcome)
	assert.Empty(t, h.notifier.sent)
}

func TestMarkCompletedRefusesOverlappingPayment(t *testing.T) {
	h := newHarness(t)
	first, err := h.request(t, "2024-06-01", "2024-06-14", "")
	require.NoError(t, err)
	second, err := h.request(t, "2024-06-10", "2024-06-20", "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, h.complete(t, "evt_1", first.PaymentReference).Outcome)
	out := h.complete(t, "evt_2", second.PaymentReference)
	assert.Equal(t, OutcomeOverbookingPrevented, out.Outcome)

	assert.Equal(t, domainreservation.StatusPending, h.reservation(t, second.ReservationID).Status)
	assert.Contains(t, h.eventNames(), "reservation.overbooking_prevented")
	assert.Len(t, h.notifier.sent, 1)
}

func TestMarkExpired(t *testing.T) {
	h := newHarness(t)
	res, err := h.request(t, "2024-06-01", "2024-06-07", "")
	require.NoError(t, err)

	out, err := commands.Dispatch[MarkExpiredCommand, *PaymentEventResult](context.Background(), h.commands, MarkExpiredCommand{
		EventID:          "evt_exp",
		PaymentReference: res.PaymentReference,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, out.Outcome)
	assert.Equal(t, domainreservation.StatusExpired, h.reservation(t, res.ReservationID).Status)

	late := h.complete(t, "evt_late", res.PaymentReference)
	assert.Equal(t, OutcomeAlreadyFinal, late.Outcome)
	assert.Empty(t, h.notifier.sent)
}

func TestGetByPaymentReference(t *testing.T) {
	h := newHarness(t)
	res, err := h.request(t, "2024-06-01", "2024-06-07", "")
	require.NoError(t, err)

	got, err := queries.Ask[GetByPaymentReferenceQuery, dto.ReservationConfirmation](context.Background(), h.queries, GetByPaymentReferenceQuery{Reference: res.PaymentReference})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.CustomerName)
	assert.Equal(t, "2024-06-07", got.EndDate)
	assert.Equal(t, int64(3000), got.TotalPrice)
	assert.Equal(t, "PENDING", got.Status)

	_, err = queries.Ask[GetByPaymentReferenceQuery, dto.ReservationConfirmation](context.Background(), h.queries, GetByPaymentReferenceQuery{Reference: "cs_nope"})
	assert.ErrorIs(t, err, domainreservation.ErrNotFound)
}
