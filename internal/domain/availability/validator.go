package availability

import (
	"errors"
	"fmt"

	"rentbox/internal/domain/shared/daterange"
)

// MinimumStayDays is the shortest rental accepted.
const MinimumStayDays = 7

var (
	ErrMinimumStay = errors.New("availability: minimum rental period is 1 week")
	ErrPastDate    = errors.New("availability: start date is in the past")
	ErrDateBlocked = errors.New("availability: range contains a blocked date")
	ErrOverlap     = errors.New("availability: range overlaps an existing reservation")
)

// Quote is what an admitted candidate costs in calendar terms.
type Quote struct {
	Days  int
	Weeks int
}

// Validate checks a candidate range against the index. The checks run in a
// fixed order so that the first failing rule determines the error.
func Validate(candidate daterange.Range, ix Index, today daterange.Date) (Quote, error) {
	days, err := daterange.CountNights(candidate.Start, candidate.End)
	if err != nil {
		return Quote{}, err
	}
	weeks := daterange.WeeksFor(days)
	if days < MinimumStayDays {
		return Quote{}, fmt.Errorf("%w: %d days selected", ErrMinimumStay, days)
	}
	if candidate.Start.Before(today) {
		return Quote{}, fmt.Errorf("%w: %s", ErrPastDate, candidate.Start)
	}
	for _, b := range ix.Blocked {
		if candidate.Contains(b) {
			return Quote{}, fmt.Errorf("%w: %s", ErrDateBlocked, b)
		}
	}
	if occ, ok := ix.FirstConflict(candidate); ok {
		return Quote{}, fmt.Errorf("%w: %s is booked", ErrOverlap, occ.Range)
	}
	return Quote{Days: days, Weeks: weeks}, nil
}

// IsRejection reports whether err is one of the validation outcomes.
func IsRejection(err error) bool {
	return errors.Is(err, daterange.ErrInvalidRange) ||
		errors.Is(err, daterange.ErrInvalidDate) ||
		errors.Is(err, ErrMinimumStay) ||
		errors.Is(err, ErrPastDate) ||
		errors.Is(err, ErrDateBlocked) ||
		errors.Is(err, ErrOverlap)
}
