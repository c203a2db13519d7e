package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentbox/internal/app/middleware"
)

type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var m idempotencyModel
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: m.Key, Payload: m.Payload, OccurredAt: m.OccurredAt}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&idempotencyModel{
		Key:        rec.Key,
		Payload:    rec.Payload,
		OccurredAt: rec.OccurredAt,
		CreatedAt:  time.Now().UTC(),
	}).Error
}

// Inbox is the event_consumed table keyed by (event_id, consumer).
type Inbox struct {
	db       *gorm.DB
	consumer string
}

func NewInbox(db *gorm.DB, consumer string) *Inbox {
	return &Inbox{db: db, consumer: consumer}
}

func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	res := i.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&eventConsumedModel{
		EventID:    eventID,
		Consumer:   i.consumer,
		ReceivedAt: time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 0, nil
}

func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	return i.db.WithContext(ctx).
		Where("event_id = ? AND consumer = ?", eventID, i.consumer).
		Delete(&eventConsumedModel{}).Error
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
