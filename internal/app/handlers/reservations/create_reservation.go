package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/dto"
	availabilityapp "rentbox/internal/app/handlers/availability"
	"rentbox/internal/app/middleware"
	"rentbox/internal/app/outbox"
	"rentbox/internal/app/policies"
	"rentbox/internal/app/uow"
	domainavailability "rentbox/internal/domain/availability"
	domainpricing "rentbox/internal/domain/pricing"
	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
)

const createReservationKey = "reservations.create"

type CreateReservationCommand struct {
	CustomerName    string `json:"customer_name" validate:"required,max=255"`
	CustomerEmail   string `json:"customer_email" validate:"required,email,max=255"`
	CustomerPhone   string `json:"customer_phone" validate:"max=50"`
	Notes           string `json:"notes" validate:"max=2000"`
	StartDate       daterange.Date
	EndDate         daterange.Date
	IdempotencyKeyV string
}

func (c CreateReservationCommand) Key() string { return createReservationKey }

func (c CreateReservationCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return "reservation-create:" + c.IdempotencyKeyV
}

func (c CreateReservationCommand) ResultPrototype() any { return &CreateReservationResult{} }

// ManagesTransaction is true: the gateway call sits between two commits.
func (c CreateReservationCommand) ManagesTransaction() bool { return true }

type CreateReservationResult struct {
	ReservationID    string       `json:"reservation_id"`
	PaymentReference string       `json:"payment_reference"`
	CheckoutURL      string       `json:"checkout_url"`
	Days             int          `json:"days"`
	Weeks            int          `json:"weeks"`
	Total            dto.MoneyDTO `json:"total"`
}

type CreateReservationHandler struct {
	UoWFactory  uow.UoWFactory
	Gateway     policies.PaymentGateway
	Pricing     domainpricing.Calculator
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Logger      *slog.Logger
	Now         func() time.Time
	IDGenerator func() string
}

func (h *CreateReservationHandler) Handle(ctx context.Context, cmd CreateReservationCommand) (*CreateReservationResult, error) {
	if h.UoWFactory == nil || h.Gateway == nil {
		return nil, policies.ErrNotConfigured
	}
	candidate := daterange.Range{Start: cmd.StartDate, End: cmd.EndDate}
	if candidate.Start.IsZero() || candidate.End.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", daterange.ErrInvalidDate)
	}
	now := h.now()
	today := daterange.Today(now)

	var (
		created *domainreservation.Reservation
		price   domainpricing.Breakdown
	)
	err := uow.Write(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		ix, err := availabilityapp.LoadIndex(ctx, unit)
		if err != nil {
			return err
		}
		if _, err := domainavailability.Validate(candidate, ix, today); err != nil {
			return err
		}
		price, err = h.Pricing.Quote(candidate)
		if err != nil {
			return err
		}
		created, err = domainreservation.NewReservation(domainreservation.CreateParams{
			ID: domainreservation.ID(h.newID()),
			Customer: domainreservation.Customer{
				Name:  cmd.CustomerName,
				Email: cmd.CustomerEmail,
				Phone: cmd.CustomerPhone,
			},
			Notes:      cmd.Notes,
			Range:      candidate,
			TotalPrice: price.Total,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
		if err := unit.Reservations().Save(ctx, created); err != nil {
			return err
		}
		return outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, created.Drain())
	})
	if err != nil {
		if domainavailability.IsRejection(err) {
			h.log().Info("reservation rejected", "start", candidate.Start.String(), "end", candidate.End.String(), "reason", err.Error())
		}
		return nil, err
	}

	session, err := h.Gateway.CreateCheckoutSession(ctx, policies.CheckoutRequest{
		ReservationID: string(created.ID),
		CustomerEmail: created.Customer.Email,
		Range:         created.Range,
		Weeks:         price.Weeks,
		WeeklyRate:    price.WeeklyRate,
		Total:         price.Total,
	})
	if err != nil {
		h.log().Error("checkout session failed", "reservation_id", created.ID, "error", err)
		if errors.Is(err, policies.ErrNotConfigured) || errors.Is(err, policies.ErrGateway) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", policies.ErrGateway, err)
	}

	err = uow.Write(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, err := unit.Reservations().ByID(ctx, created.ID)
		if err != nil {
			return err
		}
		if err := res.AttachPaymentReference(session.Reference, h.now()); err != nil {
			return err
		}
		return unit.Reservations().Save(ctx, res)
	})
	if err != nil {
		h.log().Error("attach payment reference failed", "reservation_id", created.ID, "reference", session.Reference, "error", err)
		return nil, err
	}

	h.log().Info("reservation requested", "reservation_id", created.ID, "reference", session.Reference, "weeks", price.Weeks, "total", price.Total.String())
	return &CreateReservationResult{
		ReservationID:    string(created.ID),
		PaymentReference: session.Reference,
		CheckoutURL:      session.URL,
		Days:             price.Days,
		Weeks:            price.Weeks,
		Total:            dto.MapMoney(price.Total),
	}, nil
}

func (h *CreateReservationHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *CreateReservationHandler) newID() string {
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}

func (h *CreateReservationHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var (
	_ commands.Handler[CreateReservationCommand, *CreateReservationResult] = (*CreateReservationHandler)(nil)
	_ middleware.IdempotentCommand                                          = CreateReservationCommand{}
	_ middleware.SelfManagedCommand                                         = CreateReservationCommand{}
)
