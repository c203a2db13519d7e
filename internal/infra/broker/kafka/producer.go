package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/IBM/sarama"
)

// ContentType marks messages as structured-mode CloudEvents.
const ContentType = "application/cloudevents+json"

// Producer relays outbox records to Kafka. Writes are idempotent and wait for
// all in-sync replicas, and records of one reservation share a partition.
type Producer struct {
	sync   sarama.SyncProducer
	logger *slog.Logger
}

func NewProducer(brokers []string, clientID string, cfg *sarama.Config) (*Producer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return newProducer(sp, nil), nil
}

func newProducer(sp sarama.SyncProducer, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{sync: sp, logger: logger}
}

// Publish sends one record keyed by aggregate id.
func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Value:   sarama.ByteEncoder(payload),
		Headers: recordHeaders(headers),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "event published", "topic", topic, "key", key, "partition", partition, "offset", offset)
	return nil
}

func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		if k != "content-type" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	hs := make([]sarama.RecordHeader, 0, len(keys)+1)
	hs = append(hs, sarama.RecordHeader{Key: []byte("content-type"), Value: []byte(ContentType)})
	for _, k := range keys {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(headers[k])})
	}
	return hs
}

func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}
