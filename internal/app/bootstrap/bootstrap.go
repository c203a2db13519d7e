// Package bootstrap registers the application handlers on the command and query buses
// and wraps them in the middleware pipeline.
package bootstrap

import (
	"log/slog"
	"time"

	"rentbox/internal/app/commands"
	"rentbox/internal/app/dto"
	availabilityapp "rentbox/internal/app/handlers/availability"
	reservationsapp "rentbox/internal/app/handlers/reservations"
	"rentbox/internal/app/middleware"
	"rentbox/internal/app/outbox"
	"rentbox/internal/app/policies"
	"rentbox/internal/app/queries"
	"rentbox/internal/app/uow"
	domainpricing "rentbox/internal/domain/pricing"
)

type Deps struct {
	UoWFactory     uow.UoWFactory
	Outbox         outbox.Outbox
	Idempotency    middleware.IdempotencyStore
	IdempotencyTTL time.Duration
	Gateway        policies.PaymentGateway
	Notifier       policies.Notifier
	Pricing        domainpricing.Calculator
	Logger         *slog.Logger
	Now            func() time.Time
	IDGenerator    func() string
	// Tracing adds one span per command and query.
	Tracing bool
}

type Buses struct {
	Commands  commands.Bus
	Queries   queries.Bus
	Validator middleware.Validator
}

func Build(d Deps) Buses {
	encoder := outbox.JSONEventEncoder{}
	validator := middleware.NewStructValidator()

	create := &reservationsapp.CreateReservationHandler{
		UoWFactory:  d.UoWFactory,
		Gateway:     d.Gateway,
		Pricing:     d.Pricing,
		Outbox:      d.Outbox,
		Encoder:     encoder,
		Logger:      d.Logger,
		Now:         d.Now,
		IDGenerator: d.IDGenerator,
	}
	paymentEvents := &reservationsapp.PaymentEventsHandler{
		UoWFactory: d.UoWFactory,
		Notifier:   d.Notifier,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Logger:     d.Logger,
		Now:        d.Now,
	}
	blocked := &availabilityapp.BlockedDatesHandler{
		UoWFactory: d.UoWFactory,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Logger:     d.Logger,
		Now:        d.Now,
	}

	commandBus := commands.NewRouter()
	commands.Register[reservationsapp.CreateReservationCommand, *reservationsapp.CreateReservationResult](commandBus, create)
	commands.Func(commandBus, paymentEvents.MarkCompleted)
	commands.Func(commandBus, paymentEvents.MarkExpired)
	commands.Func(commandBus, blocked.Add)
	commands.Func(commandBus, blocked.Remove)

	queryBus := queries.NewRouter()
	queries.Register[availabilityapp.GetAvailabilityQuery, dto.Availability](queryBus, &availabilityapp.GetAvailabilityHandler{UoWFactory: d.UoWFactory, Now: d.Now})
	queries.Func(queryBus, blocked.List)
	queries.Register[reservationsapp.GetByPaymentReferenceQuery, dto.ReservationConfirmation](queryBus, &reservationsapp.GetByPaymentReferenceHandler{UoWFactory: d.UoWFactory})
	queries.Register[reservationsapp.ListReservationsQuery, dto.ReservationList](queryBus, &reservationsapp.ListReservationsHandler{UoWFactory: d.UoWFactory})

	var commandTracing middleware.CommandMiddleware
	var queryTracing middleware.QueryMiddleware
	if d.Tracing {
		commandTracing = middleware.Tracing()
		queryTracing = middleware.QueryTracing()
	}
	var idempotency middleware.CommandMiddleware
	if d.Idempotency != nil {
		idempotency = middleware.Idempotency(d.Idempotency, d.IdempotencyTTL)
	}
	var flush middleware.CommandMiddleware
	if d.Outbox != nil {
		flush = middleware.OutboxFlush(d.Outbox, d.Logger)
	}

	return Buses{
		Commands: middleware.ChainCommands(commandBus,
			commandTracing,
			middleware.Authorization(middleware.AdminAuthorizer{}),
			middleware.Validation(validator),
			idempotency,
			flush,
			middleware.Transaction(d.UoWFactory, nil),
		),
		Queries: middleware.ChainQueries(queryBus,
			queryTracing,
			middleware.QueryAuthorization(middleware.AdminAuthorizer{}),
			middleware.QueryValidation(validator),
		),
		Validator: validator,
	}
}
