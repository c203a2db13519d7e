package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"rentbox/internal/app/uow"
	domainavailability "rentbox/internal/domain/availability"
	domainreservation "rentbox/internal/domain/reservation"
)

const (
	guardCollection = "calendar_guard"
	guardID         = "calendar"
	guardAttempts   = 20
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Every write unit increments one guard document first, so two write
// transactions can never run interleaved: the second one hits a write
// conflict and is restarted until the first one finishes.
type Factory struct {
	DB           *mongo.Database
	Reservations *ReservationRepository
	BlockedDates *BlockedDateRepository
}

func NewFactory(db *mongo.Database) *Factory {
	return &Factory{
		DB:           db,
		Reservations: NewReservationRepository(db),
		BlockedDates: NewBlockedDateRepository(db),
	}
}

// Begin starts a MongoDB session/transaction.
func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f == nil || f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	backoff := 5 * time.Millisecond
	for attempt := 1; ; attempt++ {
		if err := session.StartTransaction(txnOpts); err != nil {
			session.EndSession(ctx)
			return nil, err
		}
		if opts.ReadOnly {
			break
		}
		err := f.bumpGuard(mongo.NewSessionContext(ctx, session))
		if err == nil {
			break
		}
		_ = session.AbortTransaction(ctx)
		if !isTransient(err) || attempt >= guardAttempts {
			session.EndSession(ctx)
			return nil, err
		}
		select {
		case <-ctx.Done():
			session.EndSession(context.Background())
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
	return &Unit{session: session, reservations: f.Reservations, blocked: f.BlockedDates}, nil
}

func (f *Factory) bumpGuard(ctx context.Context) error {
	_, err := f.DB.Collection(guardCollection).UpdateOne(ctx,
		bson.M{"_id": guardID},
		bson.M{"$inc": bson.M{"seq": 1}, "$currentDate": bson.M{"updated_at": true}},
		options.Update().SetUpsert(true),
	)
	return err
}

// transientTransactionLabel is the server error label for a transaction that may be retried as a whole.
const transientTransactionLabel = "TransientTransactionError"

func isTransient(err error) bool {
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel(transientTransactionLabel) {
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}

type Unit struct {
	session      mongo.Session
	reservations *ReservationRepository
	blocked      *BlockedDateRepository
}

func (u *Unit) Reservations() domainreservation.Repository {
	return u.reservations
}

func (u *Unit) BlockedDates() domainavailability.BlockedDateRepository {
	return u.blocked
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory      = (*Factory)(nil)
	_ uow.ContextInjector = (*Unit)(nil)
)
