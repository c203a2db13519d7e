package availability

import (
	"context"
	"time"

	"rentbox/internal/app/dto"
	"rentbox/internal/app/queries"
	"rentbox/internal/app/uow"
	domainavailability "rentbox/internal/domain/availability"
	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
)

const getAvailabilityKey = "availability.get"

// MaxWindowDays caps the disabled-dates window a single query may expand.
const MaxWindowDays = 731

type GetAvailabilityQuery struct {
	From daterange.Date
	To   daterange.Date
}

func (q GetAvailabilityQuery) Key() string { return getAvailabilityKey }

// Window returns the optional disabled-dates window.
func (q GetAvailabilityQuery) Window() (daterange.Range, bool, error) {
	if q.From.IsZero() && q.To.IsZero() {
		return daterange.Range{}, false, nil
	}
	r, err := daterange.New(q.From, q.To)
	if err != nil {
		return daterange.Range{}, false, err
	}
	if r.Days() > MaxWindowDays {
		r.End = r.Start.AddDays(MaxWindowDays - 1)
	}
	return r, true, nil
}

// GetAvailabilityHandler reads the index fresh on every call; there is no cache.
type GetAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
}

func (h *GetAvailabilityHandler) Handle(ctx context.Context, q GetAvailabilityQuery) (dto.Availability, error) {
	window, hasWindow, err := q.Window()
	if err != nil {
		return dto.Availability{}, err
	}
	var ix domainavailability.Index
	err = uow.Read(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		var loadErr error
		ix, loadErr = LoadIndex(ctx, unit)
		return loadErr
	})
	if err != nil {
		return dto.Availability{}, err
	}
	today := daterange.Today(h.now())
	out := dto.MapAvailability(ix, today)
	if hasWindow {
		out.DisabledDates = dto.MapDates(ix.DisabledDates(window, today))
	}
	return out, nil
}

func (h *GetAvailabilityHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// LoadIndex builds the availability index from the unit's repositories.
func LoadIndex(ctx context.Context, unit uow.UnitOfWork) (domainavailability.Index, error) {
	occupying, err := unit.Reservations().ListByStatus(ctx, domainreservation.StatusCompleted)
	if err != nil {
		return domainavailability.Index{}, err
	}
	blocked, err := unit.BlockedDates().List(ctx)
	if err != nil {
		return domainavailability.Index{}, err
	}
	return domainavailability.Compute(occupying, blocked), nil
}

var _ queries.Handler[GetAvailabilityQuery, dto.Availability] = (*GetAvailabilityHandler)(nil)
