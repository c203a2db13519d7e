package inbox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collection = "payment_inbox"

type entry struct {
	ID         string    `bson:"_id"`
	EventID    string    `bson:"event_id"`
	Consumer   string    `bson:"consumer"`
	ReceivedAt time.Time `bson:"received_at"`
}

// Store remembers which payment events a consumer has already processed.
// Entries expire after the retention window through a TTL index.
type Store struct {
	col      *mongo.Collection
	consumer string
	now      func() time.Time
}

func NewStore(ctx context.Context, db *mongo.Database, consumer string, retention time.Duration) (*Store, error) {
	col := db.Collection(collection)
	if retention > 0 {
		_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention / time.Second)),
		})
		if err != nil {
			return nil, fmt.Errorf("inbox ttl index: %w", err)
		}
	}
	return &Store{col: col, consumer: consumer, now: time.Now}, nil
}

func (s *Store) key(eventID string) string {
	return s.consumer + ":" + eventID
}

// Seen claims eventID for this consumer; true means it was claimed before.
func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	_, err := s.col.InsertOne(ctx, entry{
		ID:         s.key(eventID),
		EventID:    eventID,
		Consumer:   s.consumer,
		ReceivedAt: s.now().UTC(),
	})
	switch {
	case err == nil:
		return false, nil
	case mongo.IsDuplicateKeyError(err):
		return true, nil
	default:
		return false, err
	}
}

// Forget releases a claim so a failed event can be retried.
func (s *Store) Forget(ctx context.Context, eventID string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": s.key(eventID)})
	return err
}
