package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "rentbox/internal/app/outbox"
	"rentbox/internal/app/uow"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

type outboxEntry struct {
	record      appoutbox.EventRecord
	state       string
	attempts    int
	nextAttempt time.Time
	claimedBy   string
	lastError   string
}

// Outbox keeps records in memory. Records added inside a memory unit of work
// become visible to relays only when that unit commits.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	wake    chan struct{}
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{wake: make(chan struct{}, 1), now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok {
			return mu.stageOutbox(record)
		}
	}
	o.append(record)
	return nil
}

func (o *Outbox) append(records ...appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now().UTC()
	for _, rec := range records {
		o.entries = append(o.entries, &outboxEntry{record: rec, state: stateNew, nextAttempt: now})
	}
}

// Flush wakes a waiting relay.
func (o *Outbox) Flush(context.Context) error {
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

// Wake fires after Flush so relays can skip the poll interval.
func (o *Outbox) Wake() <-chan struct{} {
	return o.wake
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*appoutbox.Claimed, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now().UTC()
	for _, e := range o.entries {
		if e.state != stateNew && e.state != stateFailed {
			continue
		}
		if e.nextAttempt.After(now) {
			continue
		}
		e.state = stateClaimed
		e.claimedBy = workerID
		return &appoutbox.Claimed{EventRecord: e.record, Attempts: e.attempts}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.state = stateSent
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.state = stateFailed
			e.attempts++
			e.nextAttempt = next
			e.lastError = errMsg
			return nil
		}
	}
	return nil
}

// Pending returns records not yet sent, oldest first.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		if e.state != stateSent {
			out = append(out, e.record)
		}
	}
	return out
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ appoutbox.Source = (*Outbox)(nil)
)
