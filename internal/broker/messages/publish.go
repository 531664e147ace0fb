package messages

import (
	"context"
	"encoding/json"
	"log/slog"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Publish encodes msg as JSON and hands it to p. Events are notifications
// about writes that already happened, so a failure is logged and dropped.
// A nil producer or empty topic disables publication.
func Publish(ctx context.Context, p Producer, topic, key string, msg any) {
	if p == nil || topic == "" {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("encode event", "topic", topic, "key", key, "error", err.Error())
		return
	}
	if err := p.Publish(ctx, topic, []byte(key), b); err != nil {
		slog.Warn("publish event", "topic", topic, "key", key, "error", err.Error())
	}
}
