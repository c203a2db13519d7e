package pricing

import (
	"errors"

	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
)

var (
	ErrRateUnset = errors.New("pricing: weekly rate must be positive with a currency")
)

// DefaultWeeklyRate is 30.00 CAD per started week.
var DefaultWeeklyRate = money.Must(3000, "CAD")

// Breakdown is the server-side price of a range.
type Breakdown struct {
	Days       int         `json:"days"`
	Weeks      int         `json:"weeks"`
	WeeklyRate money.Money `json:"weekly_rate"`
	Total      money.Money `json:"total"`
}

// Calculator bills whole weeks: a started week is charged in full.
type Calculator struct {
	WeeklyRate money.Money
}

func NewCalculator(rate money.Money) (Calculator, error) {
	if rate.Amount <= 0 || rate.Currency == "" {
		return Calculator{}, ErrRateUnset
	}
	return Calculator{WeeklyRate: rate}, nil
}

func (c Calculator) rate() money.Money {
	if c.WeeklyRate.Amount <= 0 || c.WeeklyRate.Currency == "" {
		return DefaultWeeklyRate
	}
	return c.WeeklyRate
}

func (c Calculator) Quote(r daterange.Range) (Breakdown, error) {
	days, err := daterange.CountNights(r.Start, r.End)
	if err != nil {
		return Breakdown{}, err
	}
	weeks := daterange.WeeksFor(days)
	rate := c.rate()
	return Breakdown{
		Days:       days,
		Weeks:      weeks,
		WeeklyRate: rate,
		Total:      rate.Multiply(int64(weeks)),
	}, nil
}
