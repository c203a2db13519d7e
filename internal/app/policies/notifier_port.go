package policies

import "context"

// TemplateReservationConfirmed is sent once a reservation is paid.
const TemplateReservationConfirmed = "reservation_confirmed"

// Notifier delivers a templated message to a recipient.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}

// Confirmation is the data rendered into TemplateReservationConfirmed.
type Confirmation struct {
	ReservationID string `json:"reservation_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Total         string `json:"total"`
	TotalCents    int64  `json:"total_cents"`
	Currency      string `json:"currency"`
}
