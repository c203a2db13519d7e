package reservations

import (
	"context"
	"errors"
	"log/slog"
	"time"

	availabilityapp "rentbox/internal/app/handlers/availability"
	"rentbox/internal/app/middleware"
	"rentbox/internal/app/outbox"
	"rentbox/internal/app/policies"
	"rentbox/internal/app/uow"
	domainreservation "rentbox/internal/domain/reservation"
)

const (
	markCompletedKey = "reservations.mark_completed"
	markExpiredKey   = "reservations.mark_expired"
)

// Outcomes reported for a payment event. Every one of them acknowledges the event.
const (
	OutcomeCompleted            = "completed"
	OutcomeExpired              = "expired"
	OutcomeUnknownReference     = "unknown_reference"
	OutcomeAlreadyFinal         = "already_final"
	OutcomeOverbookingPrevented = "overbooking_prevented"
)

type MarkCompletedCommand struct {
	EventID          string
	PaymentReference string `validate:"required"`
	PaymentIntent    string
}

func (c MarkCompletedCommand) Key() string            { return markCompletedKey }
func (c MarkCompletedCommand) IdempotencyKey() string { return paymentEventKey(c.EventID) }
func (c MarkCompletedCommand) ResultPrototype() any   { return &PaymentEventResult{} }

type MarkExpiredCommand struct {
	EventID          string
	PaymentReference string `validate:"required"`
}

func (c MarkExpiredCommand) Key() string            { return markExpiredKey }
func (c MarkExpiredCommand) IdempotencyKey() string { return paymentEventKey(c.EventID) }
func (c MarkExpiredCommand) ResultPrototype() any   { return &PaymentEventResult{} }

func paymentEventKey(eventID string) string {
	if eventID == "" {
		return ""
	}
	return "payment-event:" + eventID
}

type PaymentEventResult struct {
	Outcome       string `json:"outcome"`
	ReservationID string `json:"reservation_id,omitempty"`
}

// PaymentEventsHandler applies asynchronous payment outcomes to reservations.
// Unknown references and terminal reservations are logged and acknowledged.
type PaymentEventsHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *PaymentEventsHandler) MarkCompleted(ctx context.Context, cmd MarkCompletedCommand) (*PaymentEventResult, error) {
	result := &PaymentEventResult{}
	err := uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, found, err := h.lookup(ctx, unit, cmd.PaymentReference)
		if err != nil || !found {
			result.Outcome = OutcomeUnknownReference
			return err
		}
		result.ReservationID = string(res.ID)
		if res.Status != domainreservation.StatusPending {
			result.Outcome = OutcomeAlreadyFinal
			h.log().Info("payment completion ignored", "reservation_id", res.ID, "status", res.Status, "event_id", cmd.EventID)
			return nil
		}

		ix, err := availabilityapp.LoadIndex(ctx, unit)
		if err != nil {
			return err
		}
		if conflict, clash := ix.Without(res.ID).FirstConflict(res.Range); clash {
			res.RefuseCompletion(conflict.ReservationID, h.now())
			result.Outcome = OutcomeOverbookingPrevented
			h.log().Error("paid reservation overlaps a completed one; refund required",
				"reservation_id", res.ID, "conflicting_id", conflict.ReservationID,
				"range", res.Range.String(), "reference", res.PaymentReference)
			return outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, res.Drain())
		}

		if err := res.Complete(cmd.PaymentIntent, h.now()); err != nil {
			return err
		}
		if err := unit.Reservations().Save(ctx, res); err != nil {
			return err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, res.Drain()); err != nil {
			return err
		}
		result.Outcome = OutcomeCompleted
		confirmation := confirmationFor(res)
		uow.AfterCommit(ctx, func(ctx context.Context) {
			h.notify(ctx, confirmation)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Outcome == OutcomeCompleted {
		h.log().Info("reservation completed", "reservation_id", result.ReservationID, "event_id", cmd.EventID)
	}
	return result, nil
}

func (h *PaymentEventsHandler) MarkExpired(ctx context.Context, cmd MarkExpiredCommand) (*PaymentEventResult, error) {
	result := &PaymentEventResult{}
	err := uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, found, err := h.lookup(ctx, unit, cmd.PaymentReference)
		if err != nil || !found {
			result.Outcome = OutcomeUnknownReference
			return err
		}
		result.ReservationID = string(res.ID)
		if res.Status != domainreservation.StatusPending {
			result.Outcome = OutcomeAlreadyFinal
			h.log().Info("payment expiry ignored", "reservation_id", res.ID, "status", res.Status, "event_id", cmd.EventID)
			return nil
		}
		if err := res.Expire(h.now()); err != nil {
			return err
		}
		if err := unit.Reservations().Save(ctx, res); err != nil {
			return err
		}
		result.Outcome = OutcomeExpired
		return outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, res.Drain())
	})
	if err != nil {
		return nil, err
	}
	if result.Outcome == OutcomeExpired {
		h.log().Info("reservation expired", "reservation_id", result.ReservationID, "event_id", cmd.EventID)
	}
	return result, nil
}

func (h *PaymentEventsHandler) lookup(ctx context.Context, unit uow.UnitOfWork, reference string) (*domainreservation.Reservation, bool, error) {
	res, err := unit.Reservations().ByPaymentReference(ctx, reference)
	if errors.Is(err, domainreservation.ErrNotFound) {
		h.log().Warn("payment event for unknown reference", "reference", reference)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (h *PaymentEventsHandler) notify(ctx context.Context, c policies.Confirmation) {
	if h.Notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := h.Notifier.Send(ctx, c.CustomerEmail, policies.TemplateReservationConfirmed, c); err != nil {
		h.log().Error("confirmation notification failed", "reservation_id", c.ReservationID, "error", err)
	}
}

func confirmationFor(r *domainreservation.Reservation) policies.Confirmation {
	return policies.Confirmation{
		ReservationID: string(r.ID),
		CustomerName:  r.Customer.Name,
		CustomerEmail: r.Customer.Email,
		StartDate:     r.Range.Start.String(),
		EndDate:       r.Range.End.String(),
		Total:         r.TotalPrice.String(),
		TotalCents:    r.TotalPrice.Amount,
		Currency:      r.TotalPrice.Currency,
	}
}

func (h *PaymentEventsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *PaymentEventsHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var (
	_ middleware.IdempotentCommand = MarkCompletedCommand{}
	_ middleware.IdempotentCommand = MarkExpiredCommand{}
)
