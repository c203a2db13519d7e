package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "rentbox/internal/app/outbox"
	"rentbox/internal/app/uow"
	domainavailability "rentbox/internal/domain/availability"
	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
)

func newReservation(t *testing.T, id string) *domainreservation.Reservation {
	t.Helper()
	res, err := domainreservation.NewReservation(domainreservation.CreateParams{
		ID:         domainreservation.ID(id),
		Customer:   domainreservation.Customer{Name: "Ada", Email: "ada@example.com"},
		Range:      daterange.Range{Start: daterange.MustParseDate("2030-06-01"), End: daterange.MustParseDate("2030-06-07")},
		TotalPrice: money.Must(3000, "CAD"),
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)
	return res
}

func TestCommitPublishesStagedWrites(t *testing.T) {
	ctx := context.Background()
	box := NewOutbox()
	f := NewFactory(NewStore(), box)

	err := uow.Write(ctx, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := unit.Reservations().Save(ctx, newReservation(t, "r1")); err != nil {
			return err
		}
		if err := box.Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "reservation.requested"}); err != nil {
			return err
		}
		assert.Empty(t, box.Pending(), "outbox records wait for commit")
		return nil
	})
	require.NoError(t, err)
	require.Len(t, box.Pending(), 1)

	err = uow.Read(ctx, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, err := unit.Reservations().ByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Version)
		return nil
	})
	require.NoError(t, err)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(NewStore(), NewOutbox())

	unit, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Reservations().Save(ctx, newReservation(t, "r1")))
	require.NoError(t, unit.Rollback(ctx))

	reader, err := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	_, err = reader.Reservations().ByID(ctx, "r1")
	assert.ErrorIs(t, err, domainreservation.ErrNotFound)
	require.NoError(t, reader.Rollback(ctx))
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(NewStore(), NewOutbox())
	unit, err := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(ctx)

	assert.ErrorIs(t, unit.Reservations().Save(ctx, newReservation(t, "r1")), ErrReadOnly)
	blocked, err := domainavailability.NewBlockedDate(daterange.MustParseDate("2030-01-01"), "", time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, unit.BlockedDates().Add(ctx, blocked), ErrReadOnly)
}

func TestSaveDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(NewStore(), NewOutbox())
	require.NoError(t, uow.Write(ctx, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Reservations().Save(ctx, newReservation(t, "r1"))
	}))

	err := uow.Write(ctx, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Reservations().Save(ctx, newReservation(t, "r1"))
	})
	assert.ErrorIs(t, err, domainreservation.ErrConcurrentUpdate)
}

func TestBlockedDatesAddRemove(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(NewStore(), NewOutbox())
	day := daterange.MustParseDate("2030-01-01")
	blocked, err := domainavailability.NewBlockedDate(day, "maintenance", time.Now())
	require.NoError(t, err)

	require.NoError(t, uow.Write(ctx, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.BlockedDates().Add(ctx, blocked)
	}))
	err = uow.Write(ctx, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.BlockedDates().Add(ctx, blocked)
	})
	assert.ErrorIs(t, err, domainavailability.ErrDateAlreadyBlocked)

	require.NoError(t, uow.Write(ctx, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		list, err := unit.BlockedDates().List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "maintenance", list[0].Reason)
		return unit.BlockedDates().Remove(ctx, day)
	}))
	err = uow.Write(ctx, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.BlockedDates().Remove(ctx, day)
	})
	assert.ErrorIs(t, err, domainavailability.ErrBlockedDateNotFound)
}

func TestWriteUnitsAreSerialized(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(NewStore(), NewOutbox())

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = uow.Write(ctx, f, func(ctx context.Context, unit uow.UnitOfWork) error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestBeginHonoursCancelledContext(t *testing.T) {
	f := NewFactory(NewStore(), NewOutbox())
	holder, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = f.Begin(ctx, uow.TxOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, holder.Commit(context.Background()))
	next, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, next.Rollback(context.Background()))
}

func TestOutboxClaimAndRetry(t *testing.T) {
	ctx := context.Background()
	box := NewOutbox()
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "reservation.completed"}))

	claimed, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "e1", claimed.ID)

	again, err := box.Claim(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, again, "claimed records are not handed out twice")

	require.NoError(t, box.MarkFailed(ctx, "e1", time.Now().Add(-time.Second), "broker down"))
	retried, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, retried)
	assert.Equal(t, 1, retried.Attempts)

	require.NoError(t, box.MarkSent(ctx, "e1"))
	assert.Empty(t, box.Pending())
}
