package kafka

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Producer publishes domain events. Keys are entity ids so that every event
// of one parcel or rider lands on the same partition, in order.
//
// Publishing happens on the request path, so single messages are flushed
// right away and a write gives up after publishTimeout.
type Producer struct {
	w       messageWriter
	timeout time.Duration
}

const publishTimeout = 2 * time.Second

func NewProducer(brokers []string) *Producer {
	return newProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           time.Second,
		MaxAttempts:            2,
	})
}

func newProducerWithWriter(w messageWriter) *Producer {
	return &Producer{w: w, timeout: publishTimeout}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

func (p *Producer) Close() error {
	if c, ok := p.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
