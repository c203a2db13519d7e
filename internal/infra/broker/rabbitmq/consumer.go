package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"rentbox/internal/infra/notify"
)

type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Bindings []string
	Prefetch int
	// DeadLetter, when set, receives tasks that failed twice or could not be decoded.
	DeadLetter string
}

// TaskHandler processes one dequeued notification task.
type TaskHandler func(ctx context.Context, task notify.Task) error

type Consumer struct {
	cfg    ConsumerConfig
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

func NewConsumer(cfg ConsumerConfig, logger *slog.Logger) (*Consumer, error) {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}
	if len(cfg.Bindings) == 0 {
		cfg.Bindings = []string{keyPrefix + "#"}
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c := &Consumer{cfg: cfg, conn: conn, ch: ch, logger: logger}
	if err := c.declare(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) declare() error {
	if err := c.ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	args := amqp.Table{}
	if c.cfg.DeadLetter != "" {
		if err := c.ch.ExchangeDeclare(c.cfg.DeadLetter, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare dlx: %w", err)
		}
		if _, err := c.ch.QueueDeclare(c.cfg.Queue+".dlq", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare dlq: %w", err)
		}
		if err := c.ch.QueueBind(c.cfg.Queue+".dlq", "#", c.cfg.DeadLetter, false, nil); err != nil {
			return fmt.Errorf("bind dlq: %w", err)
		}
		args["x-dead-letter-exchange"] = c.cfg.DeadLetter
	}
	q, err := c.ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range c.cfg.Bindings {
		if err := c.ch.QueueBind(q.Name, key, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := c.ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context, handle TaskHandler) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.dispatch(ctx, d, handle)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery, handle TaskHandler) {
	ack, requeue, err := process(ctx, d.Body, d.Redelivered, handle)
	if err != nil && c.logger != nil {
		c.logger.Warn("notification task failed", "key", d.RoutingKey, "message_id", d.MessageId, "requeue", requeue, "error", err)
	}
	if ack {
		_ = d.Ack(false)
		return
	}
	_ = d.Nack(false, requeue)
}

// process decides the delivery outcome: a malformed body is dropped, a failing task is retried once.
func process(ctx context.Context, body []byte, redelivered bool, handle TaskHandler) (ack bool, requeue bool, err error) {
	var task notify.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return false, false, fmt.Errorf("decode task: %w", err)
	}
	if err := handle(ctx, task); err != nil {
		return false, !redelivered, err
	}
	return true, false, nil
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
