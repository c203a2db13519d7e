package availability

import (
	"time"

	"rentbox/internal/domain/shared/daterange"
)

// calendarAggregate is the aggregate id used for calendar-wide events.
const calendarAggregate = "calendar"

type DateBlocked struct {
	Date   daterange.Date `json:"date"`
	Reason string         `json:"reason,omitempty"`
	At     time.Time      `json:"at"`
}

func (e DateBlocked) EventName() string     { return "calendar.date_blocked" }
func (e DateBlocked) AggregateID() string   { return calendarAggregate }
func (e DateBlocked) OccurredAt() time.Time { return e.At }

type DateUnblocked struct {
	Date daterange.Date `json:"date"`
	At   time.Time      `json:"at"`
}

func (e DateUnblocked) EventName() string     { return "calendar.date_unblocked" }
func (e DateUnblocked) AggregateID() string   { return calendarAggregate }
func (e DateUnblocked) OccurredAt() time.Time { return e.At }
