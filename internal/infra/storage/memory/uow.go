package memory

import (
	"context"
	"errors"
	"sync"

	"rentbox/internal/app/outbox"
	"rentbox/internal/app/uow"
	domainavailability "rentbox/internal/domain/availability"
	domainreservation "rentbox/internal/domain/reservation"
)

var (
	// ErrFactoryMisconfigured indicates a missing store.
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrReadOnly             = errors.New("memory: write attempted in read-only unit")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
)

// Factory hands out units over a Store. Write units hold a store-wide lock
// from Begin until Commit or Rollback, which serializes validate-then-insert.
type Factory struct {
	Store  *Store
	Outbox *Outbox

	writeMu sync.Mutex
}

func NewFactory(store *Store, box *Outbox) *Factory {
	return &Factory{Store: store, Outbox: box}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f == nil || f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	write := !opts.ReadOnly
	if write {
		if err := f.lock(ctx); err != nil {
			return nil, err
		}
	}
	return &Unit{
		factory: f,
		write:   write,
		reservations: &ReservationRepository{
			store:  f.Store,
			staged: make(map[domainreservation.ID]*domainreservation.Reservation),
			write:  write,
		},
		blocked: &BlockedDateRepository{
			store:   f.Store,
			added:   make(map[string]domainavailability.BlockedDate),
			removed: make(map[string]struct{}),
			write:   write,
		},
	}, nil
}

// lock waits for the write lock unless ctx ends first.
func (f *Factory) lock(ctx context.Context) error {
	acquired := make(chan struct{})
	go func() {
		f.writeMu.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		go func() {
			<-acquired
			f.writeMu.Unlock()
		}()
		return ctx.Err()
	}
}

// Unit is a uow.UnitOfWork that applies staged writes on Commit.
type Unit struct {
	factory      *Factory
	write        bool
	reservations *ReservationRepository
	blocked      *BlockedDateRepository
	outbox       []outbox.EventRecord

	mu   sync.Mutex
	done bool
}

func (u *Unit) Reservations() domainreservation.Repository {
	return u.reservations
}

func (u *Unit) BlockedDates() domainavailability.BlockedDateRepository {
	return u.blocked
}

func (u *Unit) stageOutbox(rec outbox.EventRecord) error {
	if !u.write {
		return ErrReadOnly
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.outbox = append(u.outbox, rec)
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if !u.write {
		return nil
	}
	defer u.factory.writeMu.Unlock()

	store := u.factory.Store
	store.mu.Lock()
	for id, res := range u.reservations.staged {
		store.reservations[id] = res
	}
	for key := range u.blocked.removed {
		delete(store.blocked, key)
	}
	for key, b := range u.blocked.added {
		store.blocked[key] = b
	}
	store.mu.Unlock()

	if u.factory.Outbox != nil && len(u.outbox) > 0 {
		u.factory.Outbox.append(u.outbox...)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	if u.write {
		u.factory.writeMu.Unlock()
	}
	return nil
}

var _ uow.UoWFactory = (*Factory)(nil)
