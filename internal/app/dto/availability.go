package dto

import (
	"rentbox/internal/domain/availability"
	"rentbox/internal/domain/shared/daterange"
)

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Availability struct {
	OccupiedRanges []DateRange `json:"occupied_ranges"`
	BlockedDates   []string    `json:"blocked_dates"`
	DisabledDates  []string    `json:"disabled_dates,omitempty"`
	MinimumDays    int         `json:"minimum_days"`
	Today          string      `json:"today"`
}

func MapAvailability(ix availability.Index, today daterange.Date) Availability {
	out := Availability{
		OccupiedRanges: make([]DateRange, 0, len(ix.Occupied)),
		BlockedDates:   make([]string, 0, len(ix.Blocked)),
		MinimumDays:    availability.MinimumStayDays,
		Today:          today.String(),
	}
	for _, occ := range ix.Occupied {
		out.OccupiedRanges = append(out.OccupiedRanges, DateRange{Start: occ.Range.Start.String(), End: occ.Range.End.String()})
	}
	for _, d := range ix.Blocked {
		out.BlockedDates = append(out.BlockedDates, d.String())
	}
	return out
}

func MapDates(dates []daterange.Date) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.String())
	}
	return out
}

type BlockedDate struct {
	Date      string `json:"date"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

type BlockedDateList struct {
	Items []BlockedDate `json:"items"`
}

func MapBlockedDates(items []availability.BlockedDate) BlockedDateList {
	out := BlockedDateList{Items: make([]BlockedDate, 0, len(items))}
	for _, b := range items {
		out.Items = append(out.Items, BlockedDate{
			Date:      b.Date.String(),
			Reason:    b.Reason,
			CreatedAt: b.CreatedAt.UTC().Format(timeLayout),
		})
	}
	return out
}
