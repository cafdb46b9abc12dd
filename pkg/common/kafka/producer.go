package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/synaptica-ai/icu-features/pkg/common/config"
	"github.com/synaptica-ai/icu-features/pkg/common/logger"
	"github.com/synaptica-ai/icu-features/pkg/common/models"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg *config.Config, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

// Publish wraps data in an envelope and writes it keyed by key, so every
// message of one batch lands on the same partition.
func (p *Producer) Publish(ctx context.Context, kind, source, key string, data interface{}) error {
	env, err := models.NewEnvelope(kind, source, data)
	if err != nil {
		return err
	}
	message, err := encodeMessage(key, env)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"envelope_id": env.ID,
			"type":        kind,
		}).Error("Failed to publish envelope")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"envelope_id": env.ID,
		"type":        kind,
		"topic":       p.writer.Topic,
	}).Info("Envelope published successfully")

	return nil
}

func encodeMessage(key string, env models.Envelope) (kafka.Message, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if key == "" {
		key = env.ID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(env.Type)},
			{Key: "source", Value: []byte(env.Source)},
		},
	}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
