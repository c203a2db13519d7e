package middleware

import (
	"context"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/uow"
)

// TxOptionsProvider picks transaction options per command.
type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// SelfManagedCommand marks commands whose handler opens its own units of
// work, e.g. because an external call must happen between two commits.
type SelfManagedCommand interface {
	ManagesTransaction() bool
}

// Transaction wraps each command in a unit of work and commits on success.
// Callbacks registered through uow.AfterCommit run once the commit succeeded.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if sm, ok := cmd.(SelfManagedCommand); ok && sm.ManagesTransaction() {
				return nextFn(ctx, cmd)
			}
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			hookCtx, hooks := uow.ContextWithHooks(ctx)
			unit, execCtx, err := uow.Begin(hookCtx, factory, opts)
			if err != nil {
				return nil, err
			}
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := nextFn(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			hooks.Run(ctx)
			return res, nil
		})
	}
}
