package uow

import (
	"context"

	domainavailability "rentbox/internal/domain/availability"
	domainreservation "rentbox/internal/domain/reservation"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
// Write units are serialized per store so validate-then-insert is atomic.
type UnitOfWork interface {
	Reservations() domainreservation.Repository
	BlockedDates() domainavailability.BlockedDateRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry driver state (sessions, tx handles) in context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
