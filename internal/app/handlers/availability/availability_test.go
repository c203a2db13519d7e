package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/dto"
	"rentbox/internal/app/middleware"
	"rentbox/internal/app/outbox"
	"rentbox/internal/app/queries"
	"rentbox/internal/app/uow"
	domainavailability "rentbox/internal/domain/availability"
	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
	"rentbox/internal/infra/storage/memory"
)

var clock = time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	factory  *memory.Factory
	box      *memory.Outbox
	commands commands.Bus
	queries  queries.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{box: memory.NewOutbox()}
	f.factory = memory.NewFactory(memory.NewStore(), f.box)
	now := func() time.Time { return clock }

	blocked := &BlockedDatesHandler{UoWFactory: f.factory, Outbox: f.box, Encoder: outbox.JSONEventEncoder{}, Now: now}
	bus := commands.NewRouter()
	commands.Func(bus, blocked.Add)
	commands.Func(bus, blocked.Remove)
	f.commands = middleware.ChainCommands(bus,
		middleware.Authorization(middleware.AdminAuthorizer{}),
		middleware.Transaction(f.factory, nil),
	)

	qbus := queries.NewRouter()
	queries.Register[GetAvailabilityQuery, dto.Availability](qbus, &GetAvailabilityHandler{UoWFactory: f.factory, Now: now})
	queries.Func(qbus, blocked.List)
	f.queries = middleware.ChainQueries(qbus, middleware.QueryAuthorization(middleware.AdminAuthorizer{}))
	return f
}

func (f *fixture) seed(t *testing.T, id, start, end string, status domainreservation.Status) {
	t.Helper()
	res, err := domainreservation.NewReservation(domainreservation.CreateParams{
		ID:         domainreservation.ID(id),
		Customer:   domainreservation.Customer{Name: "Grace", Email: "grace@example.com"},
		Range:      daterange.Range{Start: daterange.MustParseDate(start), End: daterange.MustParseDate(end)},
		TotalPrice: money.Must(3000, "CAD"),
		CreatedAt:  clock,
	})
	require.NoError(t, err)
	if status == domainreservation.StatusCompleted {
		require.NoError(t, res.Complete("pi", clock))
	}
	require.NoError(t, uow.Write(context.Background(), f.factory, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Reservations().Save(ctx, res)
	}))
}

func admin() context.Context {
	return middleware.ContextWithPrincipal(context.Background(), middleware.Principal{Subject: "admin", Admin: true})
}

func TestGetAvailabilityListsCompletedAndBlocked(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "done", "2024-06-01", "2024-06-14", domainreservation.StatusCompleted)
	f.seed(t, "open", "2024-07-01", "2024-07-14", domainreservation.StatusPending)
	_, err := commands.Dispatch[AddBlockedDateCommand, dto.BlockedDate](admin(), f.commands, AddBlockedDateCommand{
		Date:   daterange.MustParseDate("2024-08-01"),
		Reason: "maintenance",
	})
	require.NoError(t, err)

	got, err := queries.Ask[GetAvailabilityQuery, dto.Availability](context.Background(), f.queries, GetAvailabilityQuery{
		From: daterange.MustParseDate("2024-05-30"),
		To:   daterange.MustParseDate("2024-06-02"),
	})
	require.NoError(t, err)
	assert.Equal(t, []dto.DateRange{{Start: "2024-06-01", End: "2024-06-14"}}, got.OccupiedRanges)
	assert.Equal(t, []string{"2024-08-01"}, got.BlockedDates)
	assert.Equal(t, domainavailability.MinimumStayDays, got.MinimumDays)
	assert.Equal(t, "2024-05-15", got.Today)
	assert.Equal(t, []string{"2024-06-01", "2024-06-02"}, got.DisabledDates)
}

func TestGetAvailabilityRejectsReversedWindow(t *testing.T) {
	f := newFixture(t)
	_, err := queries.Ask[GetAvailabilityQuery, dto.Availability](context.Background(), f.queries, GetAvailabilityQuery{
		From: daterange.MustParseDate("2024-06-10"),
		To:   daterange.MustParseDate("2024-06-01"),
	})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestWindowIsCapped(t *testing.T) {
	q := GetAvailabilityQuery{From: daterange.MustParseDate("2024-01-01"), To: daterange.MustParseDate("2030-01-01")}
	w, ok, err := q.Window()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, MaxWindowDays, w.Days())
}

func TestBlockedDatesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := commands.Dispatch[AddBlockedDateCommand, dto.BlockedDate](context.Background(), f.commands, AddBlockedDateCommand{
		Date: daterange.MustParseDate("2024-08-01"),
	})
	assert.ErrorIs(t, err, middleware.ErrForbidden)

	_, err = queries.Ask[ListBlockedDatesQuery, dto.BlockedDateList](context.Background(), f.queries, ListBlockedDatesQuery{})
	assert.ErrorIs(t, err, middleware.ErrForbidden)
}

func TestBlockUnblockLifecycle(t *testing.T) {
	f := newFixture(t)
	day := daterange.MustParseDate("2024-08-01")

	added, err := commands.Dispatch[AddBlockedDateCommand, dto.BlockedDate](admin(), f.commands, AddBlockedDateCommand{Date: day, Reason: " owner visit "})
	require.NoError(t, err)
	assert.Equal(t, "2024-08-01", added.Date)
	assert.Equal(t, "owner visit", added.Reason)

	_, err = commands.Dispatch[AddBlockedDateCommand, dto.BlockedDate](admin(), f.commands, AddBlockedDateCommand{Date: day})
	assert.ErrorIs(t, err, domainavailability.ErrDateAlreadyBlocked)

	list, err := queries.Ask[ListBlockedDatesQuery, dto.BlockedDateList](admin(), f.queries, ListBlockedDatesQuery{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	_, err = commands.Dispatch[RemoveBlockedDateCommand, struct{}](admin(), f.commands, RemoveBlockedDateCommand{Date: day})
	require.NoError(t, err)
	_, err = commands.Dispatch[RemoveBlockedDateCommand, struct{}](admin(), f.commands, RemoveBlockedDateCommand{Date: day})
	assert.ErrorIs(t, err, domainavailability.ErrBlockedDateNotFound)

	var names []string
	for _, rec := range f.box.Pending() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"calendar.date_blocked", "calendar.date_unblocked"}, names)
}
