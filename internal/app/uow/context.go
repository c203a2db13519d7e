package uow

import (
	"context"
	"errors"
	"sync"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type ctxKey struct{}

type hooksKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	val := ctx.Value(ctxKey{})
	if val == nil {
		return nil, false
	}
	unit, ok := val.(UnitOfWork)
	return unit, ok
}

// Hooks collects callbacks that must only run once the surrounding unit committed.
type Hooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

func ContextWithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

func (h *Hooks) add(fn func(context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

// Run executes and clears the collected callbacks.
func (h *Hooks) Run(ctx context.Context) {
	if h == nil {
		return
	}
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

// AfterCommit defers fn until the unit of work in ctx commits. Without a
// registered hook set fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if fn == nil {
		return
	}
	if h, ok := ctx.Value(hooksKey{}).(*Hooks); ok && h != nil {
		h.add(fn)
		return
	}
	fn(ctx)
}

// Begin opens a unit of work and returns a context carrying it plus the
// driver state. The caller owns Commit/Rollback of the returned unit.
func Begin(ctx context.Context, factory UoWFactory, opts TxOptions) (UnitOfWork, context.Context, error) {
	if factory == nil {
		return nil, ctx, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, err
	}
	execCtx := ctx
	if injector, ok := unit.(ContextInjector); ok {
		execCtx = injector.InjectContext(ctx)
	}
	return unit, ContextWithUnitOfWork(execCtx, unit), nil
}

// Read runs fn inside the unit already present in ctx or a fresh read-only one.
func Read(ctx context.Context, factory UoWFactory, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if unit, ok := FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	unit, execCtx, err := Begin(ctx, factory, TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	defer func() { _ = unit.Rollback(execCtx) }()
	return fn(execCtx, unit)
}

// Write runs fn inside a new write unit and commits it when fn succeeds.
// Callbacks registered with AfterCommit run after a successful commit.
func Write(ctx context.Context, factory UoWFactory, fn func(ctx context.Context, unit UnitOfWork) error) error {
	hookCtx, hooks := ContextWithHooks(ctx)
	unit, execCtx, err := Begin(hookCtx, factory, TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()
	if err := fn(execCtx, unit); err != nil {
		return err
	}
	if err := unit.Commit(execCtx); err != nil {
		return err
	}
	committed = true
	hooks.Run(ctx)
	return nil
}

// Within runs fn in the unit already present in ctx, or in a new write unit otherwise.
func Within(ctx context.Context, factory UoWFactory, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if unit, ok := FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	return Write(ctx, factory, fn)
}
