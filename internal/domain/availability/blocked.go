package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentbox/internal/domain/shared/daterange"
)

var (
	ErrDateAlreadyBlocked  = errors.New("availability: date already blocked")
	ErrBlockedDateNotFound = errors.New("availability: blocked date not found")
)

// BlockedDate is a single day withheld from rental by the administrator.
type BlockedDate struct {
	Date      daterange.Date
	Reason    string
	CreatedAt time.Time
}

func NewBlockedDate(d daterange.Date, reason string, now time.Time) (BlockedDate, error) {
	if d.IsZero() {
		return BlockedDate{}, daterange.ErrInvalidDate
	}
	return BlockedDate{Date: d, Reason: strings.TrimSpace(reason), CreatedAt: now.UTC()}, nil
}

type BlockedDateRepository interface {
	List(ctx context.Context) ([]BlockedDate, error)
	Add(ctx context.Context, b BlockedDate) error
	Remove(ctx context.Context, d daterange.Date) error
}
