package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Inbox dedupes event IDs with SET NX and a retention TTL.
type Inbox struct {
	client   goredis.Cmdable
	consumer string
	ttl      time.Duration
}

func NewInbox(client goredis.Cmdable, consumer string, ttl time.Duration) *Inbox {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Inbox{client: client, consumer: consumer, ttl: ttl}
}

func (i *Inbox) key(eventID string) string {
	return "rentbox:inbox:" + i.consumer + ":" + eventID
}

func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	created, err := i.client.SetNX(ctx, i.key(eventID), time.Now().UTC().Format(time.RFC3339), i.ttl).Result()
	if err != nil {
		return false, err
	}
	return !created, nil
}

func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	return i.client.Del(ctx, i.key(eventID)).Err()
}
