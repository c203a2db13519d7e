package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appoutbox "rentbox/internal/app/outbox"
)

const (
	outboxNew     = "NEW"
	outboxClaimed = "CLAIMED"
	outboxSent    = "SENT"
	outboxFailed  = "FAILED"

	outboxClaimTimeout = 2 * time.Minute
)

// OutboxStore writes records in the caller's transaction and lets relays
// claim them with SELECT ... FOR UPDATE SKIP LOCKED.
type OutboxStore struct {
	db   *gorm.DB
	wake chan struct{}
}

func NewOutboxStore(db *gorm.DB) *OutboxStore {
	return &OutboxStore{db: db, wake: make(chan struct{}, 1)}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return conn(ctx, s.db).Create(&outboxModel{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     headers,
		State:       outboxNew,
		NextAttempt: now,
		CreatedAt:   now,
	}).Error
}

func (s *OutboxStore) Flush(context.Context) error {
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *OutboxStore) Wake() <-chan struct{} {
	return s.wake
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*appoutbox.Claimed, error) {
	var claimed *appoutbox.Claimed
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var m outboxModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("(state IN ? AND next_attempt_at <= ?) OR (state = ? AND claimed_at <= ?)",
				[]string{outboxNew, outboxFailed}, now, outboxClaimed, now.Add(-outboxClaimTimeout)).
			Order("created_at ASC").
			Take(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&outboxModel{}).Where("id = ?", m.ID).Updates(map[string]any{
			"state":      outboxClaimed,
			"claimed_by": workerID,
			"claimed_at": now,
		}).Error; err != nil {
			return err
		}
		headers := map[string]string{}
		if len(m.Headers) > 0 {
			if err := json.Unmarshal(m.Headers, &headers); err != nil {
				return err
			}
		}
		claimed = &appoutbox.Claimed{
			EventRecord: appoutbox.EventRecord{
				ID:         m.ID,
				Name:       m.Name,
				Payload:    m.Payload,
				OccurredAt: m.OccurredAt,
				Aggregate:  m.Aggregate,
				Headers:    headers,
			},
			Attempts: m.Attempts,
		}
		return nil
	})
	return claimed, err
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&outboxModel{}).Where("id = ?", id).
		Updates(map[string]any{"state": outboxSent, "sent_at": now}).Error
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return s.db.WithContext(ctx).Model(&outboxModel{}).Where("id = ?", id).Updates(map[string]any{
		"state":           outboxFailed,
		"next_attempt_at": next,
		"last_error":      errMsg,
		"attempts":        gorm.Expr("attempts + 1"),
	}).Error
}

var (
	_ appoutbox.Outbox = (*OutboxStore)(nil)
	_ appoutbox.Source = (*OutboxStore)(nil)
)
