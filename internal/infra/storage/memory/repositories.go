package memory

import (
	"context"
	"sort"
	"sync"

	domainavailability "rentbox/internal/domain/availability"
	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/events"
)

// Store keeps committed state. Units of work read through it and stage their writes.
type Store struct {
	mu           sync.RWMutex
	reservations map[domainreservation.ID]*domainreservation.Reservation
	blocked      map[string]domainavailability.BlockedDate
}

func NewStore() *Store {
	return &Store{
		reservations: make(map[domainreservation.ID]*domainreservation.Reservation),
		blocked:      make(map[string]domainavailability.BlockedDate),
	}
}

func cloneReservation(r *domainreservation.Reservation) *domainreservation.Reservation {
	if r == nil {
		return nil
	}
	c := *r
	c.EventRecorder = events.EventRecorder{}
	return &c
}

// ReservationRepository is the unit-scoped view over reservations.
type ReservationRepository struct {
	store  *Store
	staged map[domainreservation.ID]*domainreservation.Reservation
	write  bool
}

func (r *ReservationRepository) visible(id domainreservation.ID) (*domainreservation.Reservation, bool) {
	if res, ok := r.staged[id]; ok {
		return res, true
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	res, ok := r.store.reservations[id]
	return res, ok
}

func (r *ReservationRepository) all() []*domainreservation.Reservation {
	r.store.mu.RLock()
	out := make([]*domainreservation.Reservation, 0, len(r.store.reservations)+len(r.staged))
	for id, res := range r.store.reservations {
		if _, overridden := r.staged[id]; overridden {
			continue
		}
		out = append(out, res)
	}
	r.store.mu.RUnlock()
	for _, res := range r.staged {
		out = append(out, res)
	}
	return out
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ID) (*domainreservation.Reservation, error) {
	res, ok := r.visible(id)
	if !ok {
		return nil, domainreservation.ErrNotFound
	}
	return cloneReservation(res), nil
}

func (r *ReservationRepository) ByPaymentReference(ctx context.Context, reference string) (*domainreservation.Reservation, error) {
	if reference == "" {
		return nil, domainreservation.ErrNotFound
	}
	for _, res := range r.all() {
		if res.PaymentReference == reference {
			return cloneReservation(res), nil
		}
	}
	return nil, domainreservation.ErrNotFound
}

func (r *ReservationRepository) ListByStatus(ctx context.Context, statuses ...domainreservation.Status) ([]*domainreservation.Reservation, error) {
	want := make(map[domainreservation.Status]struct{}, len(statuses))
	for _, s := range statuses {
		want[s] = struct{}{}
	}
	out := make([]*domainreservation.Reservation, 0)
	for _, res := range r.all() {
		if _, ok := want[res.Status]; len(want) > 0 && !ok {
			continue
		}
		out = append(out, cloneReservation(res))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Save stages the reservation; the version must match the visible copy.
func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	if !r.write {
		return ErrReadOnly
	}
	current, exists := r.visible(res.ID)
	switch {
	case exists && current.Version != res.Version:
		return domainreservation.ErrConcurrentUpdate
	case !exists && res.Version != 0:
		return domainreservation.ErrConcurrentUpdate
	}
	res.Version++
	r.staged[res.ID] = cloneReservation(res)
	return nil
}

// BlockedDateRepository is the unit-scoped view over blocked dates.
type BlockedDateRepository struct {
	store   *Store
	added   map[string]domainavailability.BlockedDate
	removed map[string]struct{}
	write   bool
}

func (r *BlockedDateRepository) exists(key string) bool {
	if _, ok := r.added[key]; ok {
		return true
	}
	if _, ok := r.removed[key]; ok {
		return false
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.blocked[key]
	return ok
}

func (r *BlockedDateRepository) List(ctx context.Context) ([]domainavailability.BlockedDate, error) {
	r.store.mu.RLock()
	out := make([]domainavailability.BlockedDate, 0, len(r.store.blocked)+len(r.added))
	for key, b := range r.store.blocked {
		if _, gone := r.removed[key]; gone {
			continue
		}
		if _, replaced := r.added[key]; replaced {
			continue
		}
		out = append(out, b)
	}
	r.store.mu.RUnlock()
	for _, b := range r.added {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *BlockedDateRepository) Add(ctx context.Context, b domainavailability.BlockedDate) error {
	if !r.write {
		return ErrReadOnly
	}
	key := b.Date.String()
	if r.exists(key) {
		return domainavailability.ErrDateAlreadyBlocked
	}
	delete(r.removed, key)
	r.added[key] = b
	return nil
}

func (r *BlockedDateRepository) Remove(ctx context.Context, d daterange.Date) error {
	if !r.write {
		return ErrReadOnly
	}
	key := d.String()
	if !r.exists(key) {
		return domainavailability.ErrBlockedDateNotFound
	}
	delete(r.added, key)
	r.removed[key] = struct{}{}
	return nil
}

var (
	_ domainreservation.Repository             = (*ReservationRepository)(nil)
	_ domainavailability.BlockedDateRepository = (*BlockedDateRepository)(nil)
)
