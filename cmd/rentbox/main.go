package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"rentbox/internal/app/bootstrap"
	"rentbox/internal/app/policies"
	"rentbox/internal/app/services/auth"
	"rentbox/internal/app/services/payments"
	domainpricing "rentbox/internal/domain/pricing"
	"rentbox/internal/domain/shared/money"
	"rentbox/internal/infra/broker/kafka"
	"rentbox/internal/infra/broker/rabbitmq"
	"rentbox/internal/infra/config"
	ginserver "rentbox/internal/infra/http/gin"
	"rentbox/internal/infra/notify"
	"rentbox/internal/infra/obs"
	"rentbox/internal/infra/outbox"
	"rentbox/internal/infra/payments/fake"
	"rentbox/internal/infra/payments/stripepay"
	"rentbox/internal/infra/redis"
	"rentbox/internal/infra/security"
	"rentbox/internal/infra/storage/s3"
)

const serviceName = "rentbox"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod").Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	shutdownTracer, err := obs.InitTracer(ctx, serviceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: app.checks}, app.handlers)

	var wg sync.WaitGroup
	for name, run := range app.workers {
		wg.Add(1)
		go func(name string, run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "worker", name, "error", err)
			}
		}(name, run)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "gateway", cfg.PaymentGateway)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	wg.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app.close(closeCtx, logger)
	if err := shutdownTracer(closeCtx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	checks   map[string]obs.Check
	workers  map[string]func(context.Context) error
	closers  []func(context.Context) error
}

func (a *application) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *application) close(ctx context.Context, logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		checks:  make(map[string]obs.Check),
		workers: make(map[string]func(context.Context) error),
	}

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.onClose(st.close)
	app.checks["storage"] = st.ready

	rate, err := money.New(cfg.WeeklyPriceCents, cfg.Currency)
	if err != nil {
		return nil, err
	}
	pricing, err := domainpricing.NewCalculator(rate)
	if err != nil {
		return nil, err
	}

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := notifier.(interface{ Close() error }); ok {
		app.onClose(func(context.Context) error { return c.Close() })
	}

	buses := bootstrap.Build(bootstrap.Deps{
		UoWFactory:     st.factory,
		Outbox:         st.outbox,
		Idempotency:    st.idempotency,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Gateway:        buildGateway(cfg, logger),
		Notifier:       notifier,
		Pricing:        pricing,
		Logger:         logger,
		Now:            time.Now,
		IDGenerator:    uuid.NewString,
		Tracing:        cfg.OTLPEndpoint != "",
	})

	inbox := st.inbox
	var limiter ginserver.Limiter
	if cfg.RedisAddr != "" {
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		app.onClose(func(context.Context) error { return client.Close() })
		app.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		inbox = redis.NewInbox(client, inboxConsumer, cfg.InboxTTL)
		limiter = redis.NewRateLimiter(client, redis.RateLimitConfig{
			Prefix:         "rentbox:ratelimit",
			Capacity:       cfg.RateLimitCapacity,
			RefillTokens:   cfg.RateLimitRefill,
			RefillInterval: cfg.RateLimitInterval,
		})
	}

	intake := &payments.Intake{Commands: buses.Commands, Inbox: inbox, Validator: buses.Validator, Logger: logger}

	authService := buildAuth(cfg, logger)
	adminAuth := ginserver.AdminAuth{Logger: logger}
	if authService != nil {
		adminAuth.Resolver = authService
	}
	webhooks := ginserver.WebhookHandler{
		Intake:        intake,
		Token:         cfg.PaymentsWebhookToken,
		AllowUnsigned: cfg.PaymentGateway == config.GatewayFake,
		Logger:        logger,
	}
	if cfg.StripeWebhookSecret != "" {
		webhooks.Events = stripepay.WebhookVerifier{Secret: cfg.StripeWebhookSecret}
	}

	app.handlers = ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Queries: buses.Queries},
		Reservations: ginserver.ReservationHandler{Commands: buses.Commands, Queries: buses.Queries},
		Webhooks:     webhooks,
		Admin:        ginserver.AdminHandler{Auth: authService, Commands: buses.Commands, Queries: buses.Queries},
		AdminAuth:    adminAuth.Handle,
		CreateLimit:  ginserver.RateLimit(limiter, "reservations.create", logger),
		LoginLimit:   ginserver.RateLimit(limiter, "admin.login", logger),
	}

	if err := wireKafka(app, cfg, st, intake, logger); err != nil {
		return nil, err
	}
	return app, nil
}

// wireKafka starts the outbox relay (to Kafka or the log) and the payment-event consumer.
func wireKafka(app *application, cfg config.Config, st *storage, intake *payments.Intake, logger *slog.Logger) error {
	relay := &outbox.Worker{
		Store:       st.source,
		Wake:        st.wake,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "app://" + serviceName,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
		Producer:    outbox.LogProducer{Logger: logger},
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, serviceName, nil)
		if err != nil {
			return err
		}
		app.onClose(func(context.Context) error { return producer.Close() })
		relay.Producer = producer
	}
	app.workers["outbox-relay"] = relay.Run

	if len(cfg.KafkaBrokers) == 0 || cfg.KafkaPaymentTopic == "" {
		return nil
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil,
		kafka.PaymentEventHandler{Processor: intake, Logger: logger},
		kafka.ConsumerOptions{Retries: len(cfg.RetryBackoff) + 1, Backoff: firstOr(cfg.RetryBackoff, time.Second), Logger: logger})
	if err != nil {
		return err
	}
	app.onClose(func(context.Context) error { return consumer.Close() })
	app.workers["payment-events"] = func(ctx context.Context) error {
		return consumer.Run(ctx, []string{cfg.KafkaPaymentTopic})
	}
	return nil
}

func buildGateway(cfg config.Config, logger *slog.Logger) policies.PaymentGateway {
	switch cfg.PaymentGateway {
	case config.GatewayStripe:
		gw, err := stripepay.NewGateway(stripepay.Config{
			SecretKey:     cfg.StripeSecretKey,
			PublicBaseURL: cfg.PublicBaseURL,
			ProductName:   cfg.ProductName,
		})
		if err != nil {
			logger.Warn("stripe gateway not configured; reservation creation disabled", "error", err)
			return nil
		}
		return gw
	default:
		logger.Warn("using fake payment gateway; post outcomes to /api/v1/webhooks/payments")
		return fake.NewGateway(cfg.PublicBaseURL)
	}
}

// buildNotifier queues confirmations on RabbitMQ when configured, otherwise sends them in-process.
func buildNotifier(cfg config.Config, logger *slog.Logger) (policies.Notifier, error) {
	if cfg.RabbitMQURL != "" {
		return rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.NotifyExchange)
	}
	var archive notify.Archive
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(s3.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		}, logger)
		if err != nil {
			return nil, err
		}
		archive = client
	}
	return notify.NewSender(notify.MailjetConfig{
		APIKey:    cfg.MailjetAPIKey,
		SecretKey: cfg.MailjetSecretKey,
		FromEmail: cfg.MailFrom,
		FromName:  cfg.MailFromName,
	}, archive, logger)
}

func buildAuth(cfg config.Config, logger *slog.Logger) *auth.Service {
	hasher := security.BcryptHasher{}
	hash, err := hasher.ResolveAdminHash(cfg.AdminPasswordHash, cfg.AdminPassword)
	if err != nil {
		logger.Warn("admin access disabled", "error", err)
		return nil
	}
	if hash == "" || cfg.AdminJWTSecret == "" {
		logger.Warn("admin access disabled: ADMIN_PASSWORD(_HASH) and ADMIN_JWT_SECRET are required")
		return nil
	}
	issuer, err := security.NewJWTIssuer(cfg.AdminJWTSecret)
	if err != nil {
		logger.Warn("admin access disabled", "error", err)
		return nil
	}
	return &auth.Service{Passwords: hasher, Tokens: issuer, AdminHash: hash, TokenTTL: cfg.AdminTokenTTL, Logger: logger}
}

func firstOr(ds []time.Duration, def time.Duration) time.Duration {
	if len(ds) > 0 {
		return ds[0]
	}
	return def
}
