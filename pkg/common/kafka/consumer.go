package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/synaptica-ai/icu-features/pkg/common/config"
	"github.com/synaptica-ai/icu-features/pkg/common/logger"
	"github.com/synaptica-ai/icu-features/pkg/common/models"
)

const (
	defaultHandlerAttempts = 3
	defaultRetryBackoff    = 2 * time.Second
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader   messageReader
	attempts int
	backoff  time.Duration
}

type EnvelopeHandler func(ctx context.Context, env models.Envelope) error

func NewConsumer(cfg *config.Config, topic string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, attempts: defaultHandlerAttempts, backoff: defaultRetryBackoff}
}

// Consume blocks until ctx is done. A message whose handler keeps failing
// stops the consumer with its offset uncommitted, so the group redelivers it
// after a restart instead of committing past it.
func (c *Consumer) Consume(ctx context.Context, handler EnvelopeHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Log.WithError(err).Error("Failed to fetch message")
				continue
			}

			env, err := decodeEnvelope(message)
			if err != nil {
				logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal envelope")
				c.commit(ctx, message)
				continue
			}

			if err := c.handle(ctx, handler, env); err != nil {
				return fmt.Errorf("envelope %s at offset %d: %w", env.ID, message.Offset, err)
			}

			c.commit(ctx, message)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, handler EnvelopeHandler, env models.Envelope) error {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = handler(ctx, env); err == nil {
			return nil
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"envelope_id": env.ID,
			"attempt":     attempt,
		}).Error("Failed to process envelope")
		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}
	return err
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).Error("Failed to commit message")
	}
}

func decodeEnvelope(message kafka.Message) (models.Envelope, error) {
	var env models.Envelope
	if err := json.Unmarshal(message.Value, &env); err != nil {
		return env, err
	}
	if env.Type == "" {
		env.Type = header(message, "event-type")
	}
	if env.Type == "" {
		return env, fmt.Errorf("message at offset %d has no envelope type", message.Offset)
	}
	return env, nil
}

func header(message kafka.Message, key string) string {
	for _, h := range message.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
