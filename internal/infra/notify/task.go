package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentbox/internal/app/policies"
)

// Task is a queued notification, carried as JSON between the API and the notifier process.
type Task struct {
	ID        string          `json:"id"`
	To        string          `json:"to"`
	Template  string          `json:"template"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewTask(id, to, template string, data any) (Task, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Task{}, fmt.Errorf("notify: encode %s data: %w", template, err)
	}
	return Task{ID: id, To: to, Template: template, Data: raw, CreatedAt: time.Now().UTC()}, nil
}

// Payload decodes Data into the type the template expects.
func (t Task) Payload() (any, error) {
	switch t.Template {
	case policies.TemplateReservationConfirmed:
		var c policies.Confirmation
		if err := json.Unmarshal(t.Data, &c); err != nil {
			return nil, fmt.Errorf("notify: decode %s data: %w", t.Template, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, t.Template)
	}
}

// Deliver hands a dequeued task to n.
func Deliver(ctx context.Context, n policies.Notifier, t Task) error {
	data, err := t.Payload()
	if err != nil {
		return err
	}
	return n.Send(ctx, t.To, t.Template, data)
}
