package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const Layout = "2006-01-02"

// Dates are UTC midnights, so day differences are exact multiples of this.
const secondsPerDay = 24 * 60 * 60

var (
	ErrInvalidRange = errors.New("daterange: end date is before start date")
	ErrInvalidDate  = errors.New("daterange: invalid calendar date")
)

// Date is a calendar day without time of day or zone. The zero value is "no date".
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func Today(now time.Time) Date {
	return DateOf(now)
}

func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(Layout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return Date{t: t}, nil
}

func MustParseDate(raw string) Date {
	d, err := ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the number of calendar days from d to other (negative when other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int((other.t.Unix() - d.t.Unix()) / secondsPerDay)
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Range is a closed interval [Start, End] of calendar days.
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func New(start, end Date) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidDate
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Days is the inclusive day count of the range.
func (r Range) Days() int {
	return r.Start.DaysUntil(r.End) + 1
}

func (r Range) Contains(d Date) bool {
	return Overlaps(r, Range{Start: d, End: d})
}

// Each calls fn for every day in the range until fn returns false.
func (r Range) Each(fn func(Date) bool) {
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		if !fn(d) {
			return
		}
	}
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// CountNights returns the inclusive day count of [start, end]; Monday to Sunday counts 7.
func CountNights(start, end Date) (int, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start, end)
	}
	return start.DaysUntil(end) + 1, nil
}

// WeeksFor rounds a day count up to whole billing weeks.
func WeeksFor(days int) int {
	if days <= 0 {
		return 0
	}
	return (days + 6) / 7
}

// Overlaps reports whether two closed ranges share at least one day.
func Overlaps(a, b Range) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}
