package postgres

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"rentbox/internal/app/uow"
	domainavailability "rentbox/internal/domain/availability"
	domainreservation "rentbox/internal/domain/reservation"
)

// calendarLockKey is the advisory lock taken by every write transaction.
const calendarLockKey int64 = 0x72656e74626f78

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing database")

type txKey struct{}

// conn returns the transaction carried by ctx, or db outside a unit of work.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

type Factory struct {
	DB           *gorm.DB
	Reservations *ReservationRepository
	BlockedDates *BlockedDateRepository
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		DB:           db,
		Reservations: NewReservationRepository(db),
		BlockedDates: NewBlockedDateRepository(db),
	}
}

// Begin opens a transaction. Write transactions take a transaction-scoped
// advisory lock first, which serializes validate-then-insert across processes.
func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f == nil || f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	tx := f.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	if opts.ReadOnly {
		if err := tx.Exec("SET TRANSACTION READ ONLY").Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	} else if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", calendarLockKey).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	return &Unit{tx: tx, reservations: f.Reservations, blocked: f.BlockedDates}, nil
}

type Unit struct {
	tx           *gorm.DB
	reservations *ReservationRepository
	blocked      *BlockedDateRepository

	once sync.Once
}

func (u *Unit) Reservations() domainreservation.Repository {
	return u.reservations
}

func (u *Unit) BlockedDates() domainavailability.BlockedDateRepository {
	return u.blocked
}

func (u *Unit) Commit(ctx context.Context) error {
	err := gorm.ErrInvalidTransaction
	u.once.Do(func() { err = u.tx.Commit().Error })
	return err
}

func (u *Unit) Rollback(ctx context.Context) error {
	var err error
	u.once.Do(func() { err = u.tx.Rollback().Error })
	return err
}

func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, u.tx)
}

var (
	_ uow.UoWFactory      = (*Factory)(nil)
	_ uow.ContextInjector = (*Unit)(nil)
)
