package availability

import (
	"context"
	"log/slog"
	"time"

	"rentbox/internal/app/dto"
	"rentbox/internal/app/outbox"
	"rentbox/internal/app/uow"
	domainavailability "rentbox/internal/domain/availability"
	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/events"
)

const (
	addBlockedDateKey    = "blocked_dates.add"
	removeBlockedDateKey = "blocked_dates.remove"
	listBlockedDatesKey  = "blocked_dates.list"
)

type AddBlockedDateCommand struct {
	Date   daterange.Date
	Reason string `validate:"max=255"`
}

func (c AddBlockedDateCommand) Key() string     { return addBlockedDateKey }
func (c AddBlockedDateCommand) AdminOnly() bool { return true }

type RemoveBlockedDateCommand struct {
	Date daterange.Date
}

func (c RemoveBlockedDateCommand) Key() string     { return removeBlockedDateKey }
func (c RemoveBlockedDateCommand) AdminOnly() bool { return true }

type ListBlockedDatesQuery struct{}

func (q ListBlockedDatesQuery) Key() string     { return listBlockedDatesKey }
func (q ListBlockedDatesQuery) AdminOnly() bool { return true }

// BlockedDatesHandler manages admin-blocked days. Blocking a day that
// already sits inside a completed reservation is allowed; it only affects new requests.
type BlockedDatesHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *BlockedDatesHandler) Add(ctx context.Context, cmd AddBlockedDateCommand) (dto.BlockedDate, error) {
	now := h.now()
	blocked, err := domainavailability.NewBlockedDate(cmd.Date, cmd.Reason, now)
	if err != nil {
		return dto.BlockedDate{}, err
	}
	err = uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := unit.BlockedDates().Add(ctx, blocked); err != nil {
			return err
		}
		ev := domainavailability.DateBlocked{Date: blocked.Date, Reason: blocked.Reason, At: now}
		return outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{ev})
	})
	if err != nil {
		return dto.BlockedDate{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("date blocked", "date", blocked.Date.String(), "reason", blocked.Reason)
	}
	return dto.MapBlockedDates([]domainavailability.BlockedDate{blocked}).Items[0], nil
}

func (h *BlockedDatesHandler) Remove(ctx context.Context, cmd RemoveBlockedDateCommand) (struct{}, error) {
	if cmd.Date.IsZero() {
		return struct{}{}, daterange.ErrInvalidDate
	}
	now := h.now()
	err := uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := unit.BlockedDates().Remove(ctx, cmd.Date); err != nil {
			return err
		}
		ev := domainavailability.DateUnblocked{Date: cmd.Date, At: now}
		return outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{ev})
	})
	if err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("date unblocked", "date", cmd.Date.String())
	}
	return struct{}{}, nil
}

func (h *BlockedDatesHandler) List(ctx context.Context, _ ListBlockedDatesQuery) (dto.BlockedDateList, error) {
	var items []domainavailability.BlockedDate
	err := uow.Read(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		items, err = unit.BlockedDates().List(ctx)
		return err
	})
	if err != nil {
		return dto.BlockedDateList{}, err
	}
	return dto.MapBlockedDates(items), nil
}

func (h *BlockedDatesHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
