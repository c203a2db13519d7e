package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// Consumer runs a consumer group and hands every message to a MessageHandler.
// A message is marked once the handler accepted it or retries ran out.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

type ConsumerOptions struct {
	Retries int
	Backoff time.Duration
	Logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, opts ConsumerOptions) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Consumer{group: g, handler: handler, retries: opts.Retries, backoff: opts.Backoff, logger: opts.Logger}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{c: c}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

func (c *Consumer) handle(ctx context.Context, msg *sarama.ConsumerMessage) {
	delay := c.backoff
	for attempt := 1; ; attempt++ {
		err := c.handler.Handle(ctx, msg)
		if err == nil {
			return
		}
		if attempt >= c.retries || ctx.Err() != nil {
			c.logger.Error("kafka message dropped after retries",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			return
		}
		c.logger.Warn("kafka message failed, retrying", "topic", msg.Topic, "offset", msg.Offset, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}

type consumerGroupHandler struct {
	c *Consumer
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.c.handle(sess.Context(), message)
		if sess.Context().Err() != nil {
			return nil
		}
		sess.MarkMessage(message, "")
	}
	return nil
}
