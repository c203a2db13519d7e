package commands

import (
	"context"
	"fmt"
	"sort"
)

type route func(ctx context.Context, cmd Command) (any, error)

// Router maps command keys to handlers. All registration happens while
// wiring, so Dispatch reads the map without locking.
type Router struct {
	routes map[string]route
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]route)}
}

// Register routes every C to h under C's own key. Registering a key twice panics.
func Register[C Command, R any](r *Router, h Handler[C, R]) {
	var zero C
	key := zero.Key()
	if key == "" {
		panic(fmt.Sprintf("commands: %T has an empty key", zero))
	}
	if _, exists := r.routes[key]; exists {
		panic("commands: duplicate registration for " + key)
	}
	r.routes[key] = func(ctx context.Context, raw Command) (any, error) {
		cmd, ok := raw.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrInvalidCommand, key, raw)
		}
		return h.Handle(ctx, cmd)
	}
}

// Func registers a plain function or method value.
func Func[C Command, R any](r *Router, fn func(ctx context.Context, cmd C) (R, error)) {
	Register[C, R](r, HandlerFunc[C, R](fn))
}

func (r *Router) Dispatch(ctx context.Context, cmd Command) (any, error) {
	if cmd == nil {
		return nil, ErrInvalidCommand
	}
	h, ok := r.routes[cmd.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, cmd.Key())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h(ctx, cmd)
}

// Keys lists the registered command keys in order.
func (r *Router) Keys() []string {
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
