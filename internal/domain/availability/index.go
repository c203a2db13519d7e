package availability

import (
	"sort"

	"rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
)

// Index is the set of unavailable dates: occupied ranges of completed
// reservations plus admin-blocked days. Pending and expired reservations never appear.
type Index struct {
	Occupied []OccupiedRange
	Blocked  []daterange.Date
}

// OccupiedRange ties a calendar range to the reservation holding it.
type OccupiedRange struct {
	ReservationID reservation.ID
	Range         daterange.Range
}

func Compute(reservations []*reservation.Reservation, blocked []BlockedDate) Index {
	ix := Index{}
	for _, r := range reservations {
		if r == nil || !r.Occupies() {
			continue
		}
		ix.Occupied = append(ix.Occupied, OccupiedRange{ReservationID: r.ID, Range: r.Range})
	}
	for _, b := range blocked {
		ix.Blocked = append(ix.Blocked, b.Date)
	}
	sort.Slice(ix.Occupied, func(i, j int) bool {
		return ix.Occupied[i].Range.Start.Before(ix.Occupied[j].Range.Start)
	})
	sort.Slice(ix.Blocked, func(i, j int) bool {
		return ix.Blocked[i].Before(ix.Blocked[j])
	})
	return ix
}

// Without returns a copy of the index that ignores the given reservation.
func (ix Index) Without(id reservation.ID) Index {
	out := Index{Blocked: ix.Blocked}
	for _, occ := range ix.Occupied {
		if occ.ReservationID == id {
			continue
		}
		out.Occupied = append(out.Occupied, occ)
	}
	return out
}

func (ix Index) Ranges() []daterange.Range {
	out := make([]daterange.Range, 0, len(ix.Occupied))
	for _, occ := range ix.Occupied {
		out = append(out, occ.Range)
	}
	return out
}

func (ix Index) IsBlocked(d daterange.Date) bool {
	for _, b := range ix.Blocked {
		if b.Equal(d) {
			return true
		}
	}
	return false
}

// Unavailable reports whether a single day cannot be picked.
func (ix Index) Unavailable(d, today daterange.Date) bool {
	if d.Before(today) || ix.IsBlocked(d) {
		return true
	}
	day := daterange.Range{Start: d, End: d}
	for _, occ := range ix.Occupied {
		if daterange.Overlaps(occ.Range, day) {
			return true
		}
	}
	return false
}

// DisabledDates lists the unavailable days inside window, in order.
func (ix Index) DisabledDates(window daterange.Range, today daterange.Date) []daterange.Date {
	var out []daterange.Date
	window.Each(func(d daterange.Date) bool {
		if ix.Unavailable(d, today) {
			out = append(out, d)
		}
		return true
	})
	return out
}

// FirstConflict returns the occupied range that overlaps candidate, if any.
func (ix Index) FirstConflict(candidate daterange.Range) (OccupiedRange, bool) {
	for _, occ := range ix.Occupied {
		if daterange.Overlaps(occ.Range, candidate) {
			return occ, true
		}
	}
	return OccupiedRange{}, false
}
