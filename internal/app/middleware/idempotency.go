package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"rentbox/internal/app/commands"
)

// IdempotentCommand is implemented by commands that carry a client or event key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer the stored result is decoded into.
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// ScopedKey is the store key for an idempotency key sent with cmd. Keys are
// scoped per command so a client key can never replay another command's result.
func ScopedKey(cmd commands.Command, key string) string {
	return cmd.Key() + ":" + key
}

// Idempotency replays the stored result for a key that already succeeded
// within ttl (zero keeps records forever). Failures are not recorded, so a
// retried request or redelivered payment event runs again.
func Idempotency(store IdempotencyStore, ttl time.Duration) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := ScopedKey(cmd, idCmd.IdempotencyKey())
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("idempotency lookup: %w", err)
			}
			if found && (ttl <= 0 || time.Since(rec.OccurredAt) < ttl) {
				return replay(idCmd, rec)
			}

			result, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if result != nil {
				if record.Payload, err = json.Marshal(result); err != nil {
					return nil, err
				}
			}
			if err := store.Save(ctx, record); err != nil {
				return nil, fmt.Errorf("idempotency save: %w", err)
			}
			return result, nil
		})
	}
}

func replay(cmd IdempotentCommand, rec IdempotencyRecord) (any, error) {
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, proto); err != nil {
			return nil, fmt.Errorf("idempotency replay %s: %w", rec.Key, err)
		}
	}
	// non-pointer prototypes come back as-is
	if rv := reflect.ValueOf(proto); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, errMissingPrototype
	}
	return proto, nil
}
