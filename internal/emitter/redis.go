package emitter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/epicmint/internal/core/domain"
)

// Publisher is the subset of the Redis client used for delivery.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

// RedisEmitter publishes JSON-encoded events on a Redis channel.
type RedisEmitter struct {
	pub     Publisher
	channel string
}

func NewRedisEmitter(pub Publisher, channel string) *RedisEmitter {
	return &RedisEmitter{pub: pub, channel: channel}
}

func (e *RedisEmitter) Emit(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := e.pub.Publish(ctx, e.channel, data); err != nil {
		return fmt.Errorf("failed to emit event %s: %w", event.ID, err)
	}
	return nil
}

func (e *RedisEmitter) Close() error {
	return e.pub.Close()
}
