package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/outbox"
	"rentbox/internal/app/uow"
	domainavailability "rentbox/internal/domain/availability"
	domainreservation "rentbox/internal/domain/reservation"
)

type fakeUnit struct {
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) Reservations() domainreservation.Repository             { return nil }
func (u *fakeUnit) BlockedDates() domainavailability.BlockedDateRepository { return nil }
func (u *fakeUnit) Commit(context.Context) error                           { u.committed = true; return nil }
func (u *fakeUnit) Rollback(context.Context) error {
	if !u.committed {
		u.rolledBack = true
	}
	return nil
}

type fakeFactory struct {
	units []*fakeUnit
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	u := &fakeUnit{}
	f.units = append(f.units, u)
	return u, nil
}

type memStore struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func (s *memStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *memStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

type echoResult struct {
	Value string `json:"value"`
}

type echoCommand struct {
	Name  string `json:"name" validate:"required"`
	IDKey string
	Admin bool
}

func (c echoCommand) Key() string            { return "test.echo" }
func (c echoCommand) IdempotencyKey() string { return c.IDKey }
func (c echoCommand) ResultPrototype() any   { return &echoResult{} }
func (c echoCommand) AdminOnly() bool        { return c.Admin }

type selfManaged struct{ echoCommand }

func (selfManaged) Key() string              { return "test.self" }
func (selfManaged) ManagesTransaction() bool { return true }

func newBus(fn func(ctx context.Context, cmd echoCommand) (*echoResult, error)) *commands.Router {
	bus := commands.NewRouter()
	commands.Func(bus, fn)
	return bus
}

func TestIdempotencyReplaysOnlySuccess(t *testing.T) {
	calls := 0
	fail := true
	bus := newBus(func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
		calls++
		if fail {
			return nil, errors.New("boom")
		}
		return &echoResult{Value: cmd.Name}, nil
	})
	store := &memStore{items: map[string]IdempotencyRecord{}}
	wrapped := ChainCommands(bus, Idempotency(store, 0))

	_, err := wrapped.Dispatch(context.Background(), echoCommand{Name: "a", IDKey: "k"})
	require.Error(t, err)

	fail = false
	first, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{Name: "a", IDKey: "k"})
	require.NoError(t, err)
	second, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{Name: "b", IDKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, "a", first.Value)
	assert.Equal(t, "a", second.Value, "stored result is replayed")
	assert.Equal(t, 2, calls)
	assert.Contains(t, store.items, "test.echo:k")
}

func TestIdempotencyRunsAgainAfterTTL(t *testing.T) {
	calls := 0
	bus := newBus(func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
		calls++
		return &echoResult{Value: cmd.Name}, nil
	})
	store := &memStore{items: map[string]IdempotencyRecord{
		"test.echo:old": {Key: "test.echo:old", Payload: []byte(`{"value":"stale"}`), OccurredAt: time.Now().Add(-2 * time.Hour)},
	}}
	wrapped := ChainCommands(bus, Idempotency(store, time.Hour))

	got, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{Name: "fresh", IDKey: "old"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Value)
	assert.Equal(t, 1, calls)
}

type failingOutbox struct{ flushed int }

func (b *failingOutbox) Add(context.Context, outbox.EventRecord) error { return nil }
func (b *failingOutbox) Flush(context.Context) error {
	b.flushed++
	return errors.New("relay unreachable")
}

func TestOutboxFlushFailureKeepsResult(t *testing.T) {
	box := &failingOutbox{}
	bus := newBus(func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
		return &echoResult{Value: "ok"}, nil
	})
	wrapped := ChainCommands(bus, OutboxFlush(box, nil))

	got, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Value)
	assert.Equal(t, 1, box.flushed)
}

func TestTransactionCommitsAndRunsHooksAfterCommit(t *testing.T) {
	factory := &fakeFactory{}
	var committedWhenHookRan bool
	bus := newBus(func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
		unit, ok := uow.FromContext(ctx)
		require.True(t, ok)
		uow.AfterCommit(ctx, func(context.Context) {
			committedWhenHookRan = unit.(*fakeUnit).committed
		})
		return &echoResult{}, nil
	})
	wrapped := ChainCommands(bus, Transaction(factory, nil))

	_, err := wrapped.Dispatch(context.Background(), echoCommand{Name: "a"})
	require.NoError(t, err)
	require.Len(t, factory.units, 1)
	assert.True(t, factory.units[0].committed)
	assert.True(t, committedWhenHookRan)
}

func TestTransactionRollsBackOnErrorAndSkipsHooks(t *testing.T) {
	factory := &fakeFactory{}
	hookRan := false
	bus := newBus(func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
		uow.AfterCommit(ctx, func(context.Context) { hookRan = true })
		return nil, errors.New("boom")
	})
	wrapped := ChainCommands(bus, Transaction(factory, nil))

	_, err := wrapped.Dispatch(context.Background(), echoCommand{Name: "a"})
	require.Error(t, err)
	assert.True(t, factory.units[0].rolledBack)
	assert.False(t, hookRan)
}

func TestTransactionSkipsSelfManagedCommands(t *testing.T) {
	factory := &fakeFactory{}
	bus := commands.NewRouter()
	commands.Func(bus, func(ctx context.Context, cmd selfManaged) (*echoResult, error) {
		_, ok := uow.FromContext(ctx)
		assert.False(t, ok)
		return &echoResult{}, nil
	})
	wrapped := ChainCommands(bus, Transaction(factory, nil))

	_, err := wrapped.Dispatch(context.Background(), selfManaged{})
	require.NoError(t, err)
	assert.Empty(t, factory.units)
}

func TestValidationRejectsMissingFields(t *testing.T) {
	bus := newBus(func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
		return &echoResult{}, nil
	})
	wrapped := ChainCommands(bus, Validation(NewStructValidator()))

	_, err := wrapped.Dispatch(context.Background(), echoCommand{})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "name (required)")
}

func TestAuthorizationGuardsAdminMessages(t *testing.T) {
	bus := newBus(func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
		return &echoResult{}, nil
	})
	wrapped := ChainCommands(bus, Authorization(AdminAuthorizer{}))

	_, err := wrapped.Dispatch(context.Background(), echoCommand{Name: "a", Admin: true})
	assert.ErrorIs(t, err, ErrForbidden)

	ctx := ContextWithPrincipal(context.Background(), Principal{Subject: "admin", Admin: true})
	_, err = wrapped.Dispatch(ctx, echoCommand{Name: "a", Admin: true})
	assert.NoError(t, err)

	_, err = wrapped.Dispatch(context.Background(), echoCommand{Name: "a"})
	assert.NoError(t, err)
}

func TestChainSkipsNilMiddleware(t *testing.T) {
	bus := newBus(func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
		return &echoResult{Value: "ok"}, nil
	})
	wrapped := ChainCommands(bus, nil, Tracing(), nil)
	res, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
}
