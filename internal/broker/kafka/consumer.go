package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// FromOldest makes a group with no committed offset start at the
	// beginning of the topic instead of its end.
	FromOldest bool
}

// Consumer reads one topic as a member of a consumer group and commits each
// message only after it was handled.
type Consumer struct {
	r     messageReader
	topic string

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	rc := kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		MaxWait:           time.Second,
		StartOffset:       kafka.LastOffset,
	}
	if cfg.FromOldest {
		rc.StartOffset = kafka.FirstOffset
	}
	if cfg.GroupID == "" {
		rc.Topic = cfg.Topic
	} else {
		rc.GroupTopics = []string{cfg.Topic}
	}
	return newConsumerWithReader(kafka.NewReader(rc), cfg.Topic)
}

func newConsumerWithReader(r messageReader, topic string) *Consumer {
	return &Consumer{r: r, topic: topic, minBackoff: 500 * time.Millisecond, maxBackoff: 30 * time.Second}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Consume runs handler over every fetched message and commits it once the
// handler succeeded. The reader keeps its own position, so a failing message
// is retried in place with backoff until it succeeds or ctx is done; nothing
// after it is fetched meanwhile. Cancellation is reported as the bare ctx
// error.
func (c *Consumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(err, "fetch %s", c.topic)
		}
		if err := c.handle(ctx, msg, handler); err != nil {
			return err
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(err, "commit %s offset %d", c.topic, msg.Offset)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler func(key, value []byte) error) error {
	backoff := c.minBackoff
	for {
		err := handler(msg.Key, msg.Value)
		if err == nil {
			return nil
		}
		slog.Warn("kafka handler failed, retrying",
			"topic", c.topic, "offset", msg.Offset, "backoff", backoff.String(), "error", err.Error())

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if backoff *= 2; backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}
