package main

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"rentbox/internal/app/middleware"
	appoutbox "rentbox/internal/app/outbox"
	"rentbox/internal/app/services/payments"
	"rentbox/internal/app/uow"
	"rentbox/internal/infra/config"
	"rentbox/internal/infra/db/mongo"
	"rentbox/internal/infra/db/postgres"
	"rentbox/internal/infra/inbox"
	"rentbox/internal/infra/outbox"
	"rentbox/internal/infra/storage/memory"
)

const inboxConsumer = "rentbox-payments"

type relayOutbox interface {
	appoutbox.Outbox
	appoutbox.Source
	Wake() <-chan struct{}
}

// storage is one backing store with everything the buses and workers need from it.
type storage struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	source      appoutbox.Source
	wake        <-chan struct{}
	idempotency middleware.IdempotencyStore
	inbox       payments.Inbox
	ready       func(context.Context) error
	close       func(context.Context) error
}

func newStorage(factory uow.UoWFactory, box relayOutbox) *storage {
	return &storage{
		factory: factory,
		outbox:  box,
		source:  box,
		wake:    box.Wake(),
		ready:   func(context.Context) error { return nil },
		close:   func(context.Context) error { return nil },
	}
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		received, err := inbox.NewStore(ctx, client.DB, inboxConsumer, cfg.InboxTTL)
		if err != nil {
			_ = client.Close(context.Background())
			return nil, err
		}
		st := newStorage(mongo.NewFactory(client.DB), outbox.NewStore(client.DB))
		st.idempotency = mongo.NewIdempotencyStore(client.DB)
		st.inbox = received
		st.ready = client.Ping
		st.close = client.Close
		logger.Info("storage ready", "driver", cfg.StorageDriver, "database", cfg.MongoDB)
		return st, nil
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		st := newStorage(postgres.NewFactory(db), postgres.NewOutboxStore(db))
		st.idempotency = postgres.NewIdempotencyStore(db)
		st.inbox = postgres.NewInbox(db, inboxConsumer)
		st.ready = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
		st.close = func(context.Context) error { return closeGorm(db) }
		logger.Info("storage ready", "driver", cfg.StorageDriver)
		return st, nil
	default:
		box := memory.NewOutbox()
		st := newStorage(memory.NewFactory(memory.NewStore(), box), box)
		st.idempotency = memory.NewIdempotencyStore()
		st.inbox = memory.NewInbox()
		logger.Warn("using in-memory storage; data is lost on restart")
		return st, nil
	}
}

func closeGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
