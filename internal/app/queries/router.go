package queries

import (
	"context"
	"fmt"
	"sort"
)

type route func(ctx context.Context, q Query) (any, error)

// Router maps query keys to handlers; registration is finished before the first Ask.
type Router struct {
	routes map[string]route
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]route)}
}

func Register[Q Query, R any](r *Router, h Handler[Q, R]) {
	var zero Q
	key := zero.Key()
	if key == "" {
		panic(fmt.Sprintf("queries: %T has an empty key", zero))
	}
	if _, exists := r.routes[key]; exists {
		panic("queries: duplicate registration for " + key)
	}
	r.routes[key] = func(ctx context.Context, raw Query) (any, error) {
		q, ok := raw.(Q)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrInvalidQuery, key, raw)
		}
		return h.Handle(ctx, q)
	}
}

func Func[Q Query, R any](r *Router, fn func(ctx context.Context, q Q) (R, error)) {
	Register[Q, R](r, HandlerFunc[Q, R](fn))
}

func (r *Router) Ask(ctx context.Context, query Query) (any, error) {
	if query == nil {
		return nil, ErrInvalidQuery
	}
	h, ok := r.routes[query.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, query.Key())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h(ctx, query)
}

func (r *Router) Keys() []string {
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
