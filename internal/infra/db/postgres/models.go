package postgres

import (
	"time"

	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
)

type reservationModel struct {
	ID               string    `gorm:"primaryKey;size:64"`
	CustomerName     string    `gorm:"size:255;not null"`
	CustomerEmail    string    `gorm:"size:255;not null"`
	CustomerPhone    string    `gorm:"size:50"`
	Notes            string    `gorm:"type:text"`
	StartDate        time.Time `gorm:"type:date;not null;index:idx_reservations_range"`
	EndDate          time.Time `gorm:"type:date;not null;index:idx_reservations_range"`
	TotalCents       int64     `gorm:"not null"`
	Currency         string    `gorm:"size:3;not null"`
	PaymentReference *string   `gorm:"size:255;uniqueIndex"`
	PaymentIntent    string    `gorm:"size:255"`
	Status           string    `gorm:"size:16;not null;index"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
	Version          int64     `gorm:"not null;default:0"`
}

func (reservationModel) TableName() string { return "reservations" }

func newReservationModel(r *domainreservation.Reservation) reservationModel {
	m := reservationModel{
		ID:            string(r.ID),
		CustomerName:  r.Customer.Name,
		CustomerEmail: r.Customer.Email,
		CustomerPhone: r.Customer.Phone,
		Notes:         r.Notes,
		StartDate:     r.Range.Start.Time(),
		EndDate:       r.Range.End.Time(),
		TotalCents:    r.TotalPrice.Amount,
		Currency:      r.TotalPrice.Currency,
		PaymentIntent: r.PaymentIntent,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
		Version:       r.Version,
	}
	if r.PaymentReference != "" {
		ref := r.PaymentReference
		m.PaymentReference = &ref
	}
	return m
}

func (m reservationModel) toAggregate() (*domainreservation.Reservation, error) {
	status, err := domainreservation.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}
	total, err := money.New(m.TotalCents, m.Currency)
	if err != nil {
		return nil, err
	}
	res := &domainreservation.Reservation{
		ID:            domainreservation.ID(m.ID),
		Customer:      domainreservation.Customer{Name: m.CustomerName, Email: m.CustomerEmail, Phone: m.CustomerPhone},
		Notes:         m.Notes,
		Range:         daterange.Range{Start: dateOf(m.StartDate), End: dateOf(m.EndDate)},
		TotalPrice:    total,
		PaymentIntent: m.PaymentIntent,
		Status:        status,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Version:       m.Version,
	}
	if m.PaymentReference != nil {
		res.PaymentReference = *m.PaymentReference
	}
	return res, nil
}

// dateOf reads a DATE column regardless of the session time zone.
func dateOf(t time.Time) daterange.Date {
	return daterange.NewDate(t.Year(), t.Month(), t.Day())
}

type blockedDateModel struct {
	Date      time.Time `gorm:"type:date;primaryKey"`
	Reason    string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"not null"`
}

func (blockedDateModel) TableName() string { return "blocked_dates" }

type outboxModel struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Name        string    `gorm:"size:128;not null"`
	Payload     []byte    `gorm:"type:jsonb;not null"`
	OccurredAt  time.Time `gorm:"not null"`
	Aggregate   string    `gorm:"size:128"`
	Headers     []byte    `gorm:"type:jsonb"`
	State       string    `gorm:"size:16;not null;index:idx_outbox_pending,priority:1"`
	Attempts    int       `gorm:"not null;default:0"`
	NextAttempt time.Time `gorm:"column:next_attempt_at;not null;index:idx_outbox_pending,priority:2"`
	ClaimedBy   string    `gorm:"size:64"`
	ClaimedAt   *time.Time
	SentAt      *time.Time
	LastError   string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (outboxModel) TableName() string { return "app_outbox" }

type idempotencyModel struct {
	Key        string `gorm:"primaryKey;size:255"`
	Payload    []byte
	OccurredAt time.Time
	CreatedAt  time.Time `gorm:"index"`
}

func (idempotencyModel) TableName() string { return "app_idempotency" }

type eventConsumedModel struct {
	EventID    string `gorm:"primaryKey;size:255"`
	Consumer   string `gorm:"primaryKey;size:64"`
	ReceivedAt time.Time
}

func (eventConsumedModel) TableName() string { return "event_consumed" }
