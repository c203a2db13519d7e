package middleware

import (
	"context"
	"errors"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/queries"
)

var ErrForbidden = errors.New("admin access required")

// AdminMessage is implemented by commands and queries reserved for the administrator.
type AdminMessage interface {
	AdminOnly() bool
}

type principalKey struct{}

// Principal identifies the caller that the transport layer authenticated.
type Principal struct {
	Subject string
	Admin   bool
}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// AdminAuthorizer rejects admin-only messages without an admin principal.
type AdminAuthorizer struct{}

func (AdminAuthorizer) Authorize(ctx context.Context, message any) error {
	m, ok := message.(AdminMessage)
	if !ok || !m.AdminOnly() {
		return nil
	}
	if p, ok := PrincipalFromContext(ctx); ok && p.Admin {
		return nil
	}
	return ErrForbidden
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
