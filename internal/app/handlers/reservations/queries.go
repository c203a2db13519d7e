package reservations

import (
	"context"
	"sort"
	"strings"

	"rentbox/internal/app/dto"
	"rentbox/internal/app/queries"
	"rentbox/internal/app/uow"
	domainreservation "rentbox/internal/domain/reservation"
)

const (
	getByPaymentReferenceKey = "reservations.by_payment_reference"
	listReservationsKey      = "reservations.list"
)

type GetByPaymentReferenceQuery struct {
	Reference string `validate:"required,max=255"`
}

func (q GetByPaymentReferenceQuery) Key() string { return getByPaymentReferenceKey }

type GetByPaymentReferenceHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetByPaymentReferenceHandler) Handle(ctx context.Context, q GetByPaymentReferenceQuery) (dto.ReservationConfirmation, error) {
	var out dto.ReservationConfirmation
	err := uow.Read(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, err := unit.Reservations().ByPaymentReference(ctx, strings.TrimSpace(q.Reference))
		if err != nil {
			return err
		}
		out = dto.MapConfirmation(res)
		return nil
	})
	return out, err
}

type ListReservationsQuery struct {
	Status domainreservation.Status
}

func (q ListReservationsQuery) Key() string     { return listReservationsKey }
func (q ListReservationsQuery) AdminOnly() bool { return true }

type ListReservationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListReservationsHandler) Handle(ctx context.Context, q ListReservationsQuery) (dto.ReservationList, error) {
	statuses := []domainreservation.Status{domainreservation.StatusPending, domainreservation.StatusCompleted, domainreservation.StatusExpired}
	if q.Status != "" {
		statuses = []domainreservation.Status{q.Status}
	}
	var items []*domainreservation.Reservation
	err := uow.Read(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		items, err = unit.Reservations().ListByStatus(ctx, statuses...)
		return err
	})
	if err != nil {
		return dto.ReservationList{}, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	out := dto.ReservationList{Items: make([]dto.ReservationSummary, 0, len(items)), Total: len(items)}
	for _, r := range items {
		out.Items = append(out.Items, dto.MapReservationSummary(r))
	}
	return out, nil
}

var (
	_ queries.Handler[GetByPaymentReferenceQuery, dto.ReservationConfirmation] = (*GetByPaymentReferenceHandler)(nil)
	_ queries.Handler[ListReservationsQuery, dto.ReservationList]             = (*ListReservationsHandler)(nil)
)
