package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
)

var today = daterange.MustParseDate("2024-05-15")

func rng(start, end string) daterange.Range {
	return daterange.Range{Start: daterange.MustParseDate(start), End: daterange.MustParseDate(end)}
}

func reservationWith(t *testing.T, id string, r daterange.Range, status reservation.Status) *reservation.Reservation {
	t.Helper()
	res, err := reservation.NewReservation(reservation.CreateParams{
		ID:         reservation.ID(id),
		Customer:   reservation.Customer{Name: "Ada", Email: "ada@example.com"},
		Range:      r,
		TotalPrice: money.Must(6000, "CAD"),
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)
	switch status {
	case reservation.StatusCompleted:
		require.NoError(t, res.Complete("", time.Now()))
	case reservation.StatusExpired:
		require.NoError(t, res.Expire(time.Now()))
	}
	return res
}

func TestComputeKeepsOnlyCompleted(t *testing.T) {
	ix := Compute([]*reservation.Reservation{
		reservationWith(t, "a", rng("2024-06-01", "2024-06-14"), reservation.StatusCompleted),
		reservationWith(t, "b", rng("2024-07-01", "2024-07-14"), reservation.StatusPending),
		reservationWith(t, "c", rng("2024-08-01", "2024-08-14"), reservation.StatusExpired),
	}, []BlockedDate{{Date: daterange.MustParseDate("2024-07-04")}})

	require.Len(t, ix.Occupied, 1)
	assert.Equal(t, reservation.ID("a"), ix.Occupied[0].ReservationID)
	assert.Equal(t, []daterange.Date{daterange.MustParseDate("2024-07-04")}, ix.Blocked)
}

func TestUnavailable(t *testing.T) {
	ix := Compute([]*reservation.Reservation{
		reservationWith(t, "a", rng("2024-06-01", "2024-06-14"), reservation.StatusCompleted),
	}, []BlockedDate{{Date: daterange.MustParseDate("2024-07-04")}})

	assert.True(t, ix.Unavailable(daterange.MustParseDate("2024-06-01"), today))
	assert.True(t, ix.Unavailable(daterange.MustParseDate("2024-06-14"), today))
	assert.False(t, ix.Unavailable(daterange.MustParseDate("2024-06-15"), today))
	assert.True(t, ix.Unavailable(daterange.MustParseDate("2024-07-04"), today))
	assert.True(t, ix.Unavailable(daterange.MustParseDate("2024-05-14"), today), "past day")
	assert.False(t, ix.Unavailable(today, today))
}

func TestDisabledDatesWindow(t *testing.T) {
	ix := Compute([]*reservation.Reservation{
		reservationWith(t, "a", rng("2024-06-01", "2024-06-02"), reservation.StatusCompleted),
	}, []BlockedDate{{Date: daterange.MustParseDate("2024-06-04")}})

	got := ix.DisabledDates(rng("2024-05-31", "2024-06-05"), today)
	var out []string
	for _, d := range got {
		out = append(out, d.String())
	}
	assert.Equal(t, []string{"2024-06-01", "2024-06-02", "2024-06-04"}, out)
}

func TestValidate(t *testing.T) {
	ix := Compute([]*reservation.Reservation{
		reservationWith(t, "a", rng("2024-06-01", "2024-06-14"), reservation.StatusCompleted),
		reservationWith(t, "p", rng("2024-09-01", "2024-09-14"), reservation.StatusPending),
	}, []BlockedDate{{Date: daterange.MustParseDate("2024-07-04")}})

	cases := []struct {
		name      string
		candidate daterange.Range
		want      error
		weeks     int
	}{
		{name: "overlaps tail", candidate: rng("2024-06-10", "2024-06-20"), want: ErrOverlap},
		{name: "adjacent after", candidate: rng("2024-06-15", "2024-06-21"), weeks: 1},
		{name: "superset", candidate: rng("2024-05-20", "2024-06-30"), want: ErrOverlap},
		{name: "shared end day", candidate: rng("2024-06-14", "2024-06-20"), want: ErrOverlap},
		{name: "five days", candidate: rng("2024-08-01", "2024-08-05"), want: ErrMinimumStay},
		{name: "two weeks", candidate: rng("2024-08-01", "2024-08-14"), weeks: 2},
		{name: "eight days bill two weeks", candidate: rng("2024-08-01", "2024-08-08"), weeks: 2},
		{name: "blocked day inside", candidate: rng("2024-07-01", "2024-07-10"), want: ErrDateBlocked},
		{name: "blocked day at start", candidate: rng("2024-07-04", "2024-07-10"), want: ErrDateBlocked},
		{name: "pending is not occupying", candidate: rng("2024-09-01", "2024-09-07"), weeks: 1},
		{name: "past start", candidate: rng("2024-05-01", "2024-05-20"), want: ErrPastDate},
		{name: "reversed", candidate: rng("2024-08-10", "2024-08-01"), want: daterange.ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Validate(tc.candidate, ix, today)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
				assert.True(t, IsRejection(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.weeks, q.Weeks)
		})
	}
}

func TestValidateQuotesMultiCenturyStay(t *testing.T) {
	q, err := Validate(rng("2030-01-01", "2400-01-01"), Index{}, today)
	require.NoError(t, err)
	assert.Equal(t, 19306, q.Weeks)
}

func TestValidateOrdersMinimumStayBeforePast(t *testing.T) {
	_, err := Validate(rng("2024-05-01", "2024-05-03"), Index{}, today)
	assert.ErrorIs(t, err, ErrMinimumStay)
}

func TestValidateOrdersBlockedBeforeOverlap(t *testing.T) {
	ix := Compute([]*reservation.Reservation{
		reservationWith(t, "a", rng("2024-07-01", "2024-07-14"), reservation.StatusCompleted),
	}, []BlockedDate{{Date: daterange.MustParseDate("2024-07-04")}})
	_, err := Validate(rng("2024-07-01", "2024-07-10"), ix, today)
	assert.ErrorIs(t, err, ErrDateBlocked)
}

func TestWithoutDropsReservation(t *testing.T) {
	ix := Compute([]*reservation.Reservation{
		reservationWith(t, "a", rng("2024-06-01", "2024-06-14"), reservation.StatusCompleted),
	}, nil)
	_, err := Validate(rng("2024-06-01", "2024-06-14"), ix.Without("a"), today)
	assert.NoError(t, err)
}
