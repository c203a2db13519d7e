package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"rentbox/internal/infra/broker/rabbitmq"
	"rentbox/internal/infra/config"
	"rentbox/internal/infra/notify"
	"rentbox/internal/infra/obs"
	"rentbox/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod").Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env).With("service", "rentbox-notifier")
	slog.SetDefault(logger)

	if cfg.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is required")
		os.Exit(1)
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
			logger.Error("receipt archive unavailable", "error", err)
			os.Exit(1)
		}
		archive = client
	}

	sender, err := notify.NewSender(notify.MailjetConfig{
		APIKey:    cfg.MailjetAPIKey,
		SecretKey: cfg.MailjetSecretKey,
		FromEmail: cfg.MailFrom,
		FromName:  cfg.MailFromName,
	}, archive, logger)
	if err != nil {
		logger.Error("sender setup failed", "error", err)
		os.Exit(1)
	}

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:        cfg.RabbitMQURL,
		Exchange:   cfg.NotifyExchange,
		Queue:      cfg.NotifyQueue,
		DeadLetter: cfg.NotifyDLX,
	}, logger)
	if err != nil {
		logger.Error("rabbitmq connect failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	logger.Info("notifier consuming", "queue", cfg.NotifyQueue)
	err = consumer.Run(ctx, func(ctx context.Context, task notify.Task) error {
		return notify.Deliver(ctx, sender, task)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("notifier stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("notifier stopped")
}
