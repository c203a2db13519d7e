package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/events"
	"rentbox/internal/domain/shared/money"
)

var (
	ErrInvalidState      = errors.New("reservation: invalid state transition")
	ErrNotFound          = errors.New("reservation: not found")
	ErrCustomerRequired  = errors.New("reservation: customer name and email are required")
	ErrReferenceAssigned = errors.New("reservation: payment reference already assigned")
	ErrReferenceRequired = errors.New("reservation: payment reference required")
	ErrConcurrentUpdate  = errors.New("reservation: concurrent update detected")
	ErrNonPositiveTotal  = errors.New("reservation: total must be positive")
)

type ID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusExpired   Status = "EXPIRED"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// ParseStatus accepts the upper or lower case form; empty input yields "".
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case "":
		return "", nil
	case StatusPending:
		return StatusPending, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusExpired:
		return StatusExpired, nil
	default:
		return "", errors.New("reservation: unknown status " + raw)
	}
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type Reservation struct {
	ID               ID
	Customer         Customer
	Notes            string
	Range            daterange.Range
	TotalPrice       money.Money
	PaymentReference string
	PaymentIntent    string
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Reservation, error)
	ByPaymentReference(ctx context.Context, reference string) (*Reservation, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Reservation, error)
	Save(ctx context.Context, r *Reservation) error
}

type CreateParams struct {
	ID         ID
	Customer   Customer
	Notes      string
	Range      daterange.Range
	TotalPrice money.Money
	CreatedAt  time.Time
}

func NewReservation(params CreateParams) (*Reservation, error) {
	customer := Customer{
		Name:  strings.TrimSpace(params.Customer.Name),
		Email: strings.TrimSpace(params.Customer.Email),
		Phone: strings.TrimSpace(params.Customer.Phone),
	}
	if customer.Name == "" || customer.Email == "" {
		return nil, ErrCustomerRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.TotalPrice.Amount <= 0 {
		return nil, ErrNonPositiveTotal
	}
	now := params.CreatedAt.UTC()
	r := &Reservation{
		ID:         params.ID,
		Customer:   customer,
		Notes:      strings.TrimSpace(params.Notes),
		Range:      params.Range,
		TotalPrice: params.TotalPrice,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.Record(Requested{ReservationID: r.ID, Range: r.Range, Total: r.TotalPrice, CustomerEmail: customer.Email, At: now})
	return r, nil
}

// AttachPaymentReference links the gateway session; it can be set once, while pending.
func (r *Reservation) AttachPaymentReference(reference string, now time.Time) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ErrReferenceRequired
	}
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	if r.PaymentReference != "" && r.PaymentReference != reference {
		return ErrReferenceAssigned
	}
	r.PaymentReference = reference
	r.UpdatedAt = now.UTC()
	return nil
}

func (r *Reservation) Complete(paymentIntent string, now time.Time) error {
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = StatusCompleted
	r.PaymentIntent = strings.TrimSpace(paymentIntent)
	r.UpdatedAt = now.UTC()
	r.Record(Completed{ReservationID: r.ID, Range: r.Range, Total: r.TotalPrice, PaymentReference: r.PaymentReference, At: r.UpdatedAt})
	return nil
}

func (r *Reservation) Expire(now time.Time) error {
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = StatusExpired
	r.UpdatedAt = now.UTC()
	r.Record(Expired{ReservationID: r.ID, PaymentReference: r.PaymentReference, At: r.UpdatedAt})
	return nil
}

// RefuseCompletion records that a paid reservation could not take its dates.
// The reservation stays pending so an operator can refund and expire it.
func (r *Reservation) RefuseCompletion(conflict ID, now time.Time) {
	r.Record(OverbookingPrevented{ReservationID: r.ID, ConflictingID: conflict, Range: r.Range, PaymentReference: r.PaymentReference, At: now.UTC()})
}

// Occupies reports whether the reservation blocks its dates on the calendar.
func (r *Reservation) Occupies() bool {
	return r.Status == StatusCompleted
}
