package dto

import (
	"time"

	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/money"
)

const timeLayout = time.RFC3339

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(m money.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount, Currency: m.Currency}
}

// ReservationConfirmation is the public projection shown after checkout.
type ReservationConfirmation struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	TotalPrice    int64  `json:"total_price"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
}

func MapConfirmation(r *domainreservation.Reservation) ReservationConfirmation {
	if r == nil {
		return ReservationConfirmation{}
	}
	return ReservationConfirmation{
		CustomerName:  r.Customer.Name,
		CustomerEmail: r.Customer.Email,
		StartDate:     r.Range.Start.String(),
		EndDate:       r.Range.End.String(),
		TotalPrice:    r.TotalPrice.Amount,
		Currency:      r.TotalPrice.Currency,
		Status:        string(r.Status),
	}
}

// ReservationSummary is the admin view of one reservation.
type ReservationSummary struct {
	ID               string   `json:"id"`
	CustomerName     string   `json:"customer_name"`
	CustomerEmail    string   `json:"customer_email"`
	CustomerPhone    string   `json:"customer_phone,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	Total            MoneyDTO `json:"total"`
	Status           string   `json:"status"`
	PaymentReference string   `json:"payment_reference,omitempty"`
	PaymentIntent    string   `json:"payment_intent,omitempty"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

type ReservationList struct {
	Items []ReservationSummary `json:"items"`
	Total int                  `json:"total"`
}

func MapReservationSummary(r *domainreservation.Reservation) ReservationSummary {
	return ReservationSummary{
		ID:               string(r.ID),
		CustomerName:     r.Customer.Name,
		CustomerEmail:    r.Customer.Email,
		CustomerPhone:    r.Customer.Phone,
		Notes:            r.Notes,
		StartDate:        r.Range.Start.String(),
		EndDate:          r.Range.End.String(),
		Total:            MapMoney(r.TotalPrice),
		Status:           string(r.Status),
		PaymentReference: r.PaymentReference,
		PaymentIntent:    r.PaymentIntent,
		CreatedAt:        r.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:        r.UpdatedAt.UTC().Format(timeLayout),
	}
}
