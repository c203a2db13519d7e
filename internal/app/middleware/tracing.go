package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/queries"
)

const tracerName = "rentbox/app"

// Tracing opens one span per command using the global tracer provider.
func Tracing() CommandMiddleware {
	tracer := otel.Tracer(tracerName)
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ctx, span := tracer.Start(ctx, "command "+cmd.Key(), trace.WithAttributes(attribute.String("app.message", cmd.Key())))
			defer span.End()
			res, err := nextFn(ctx, cmd)
			record(span, err)
			return res, err
		})
	}
}

func QueryTracing() QueryMiddleware {
	tracer := otel.Tracer(tracerName)
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			ctx, span := tracer.Start(ctx, "query "+q.Key(), trace.WithAttributes(attribute.String("app.message", q.Key())))
			defer span.End()
			res, err := nextFn(ctx, q)
			record(span, err)
			return res, err
		})
	}
}

func record(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
