package reservation

import (
	"time"

	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
)

type Requested struct {
	ReservationID ID              `json:"reservation_id"`
	Range         daterange.Range `json:"range"`
	Total         money.Money     `json:"total"`
	CustomerEmail string          `json:"customer_email"`
	At            time.Time       `json:"at"`
}

func (e Requested) EventName() string     { return "reservation.requested" }
func (e Requested) AggregateID() string   { return string(e.ReservationID) }
func (e Requested) OccurredAt() time.Time { return e.At }

type Completed struct {
	ReservationID    ID              `json:"reservation_id"`
	Range            daterange.Range `json:"range"`
	Total            money.Money     `json:"total"`
	PaymentReference string          `json:"payment_reference"`
	At               time.Time       `json:"at"`
}

func (e Completed) EventName() string     { return "reservation.completed" }
func (e Completed) AggregateID() string   { return string(e.ReservationID) }
func (e Completed) OccurredAt() time.Time { return e.At }

type Expired struct {
	ReservationID    ID        `json:"reservation_id"`
	PaymentReference string    `json:"payment_reference"`
	At               time.Time `json:"at"`
}

func (e Expired) EventName() string     { return "reservation.expired" }
func (e Expired) AggregateID() string   { return string(e.ReservationID) }
func (e Expired) OccurredAt() time.Time { return e.At }

type OverbookingPrevented struct {
	ReservationID    ID              `json:"reservation_id"`
	ConflictingID    ID              `json:"conflicting_id"`
	Range            daterange.Range `json:"range"`
	PaymentReference string          `json:"payment_reference"`
	At               time.Time       `json:"at"`
}

func (e OverbookingPrevented) EventName() string     { return "reservation.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return string(e.ReservationID) }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }
