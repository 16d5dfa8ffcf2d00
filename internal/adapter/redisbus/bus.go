// Package redisbus publishes pipeline progress over Redis pub/sub so API
// instances can stream it to browsers without talking to the worker.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"studyrag/backend/internal/config"
	"studyrag/backend/internal/pipeline"
)

type Bus struct {
	client *redis.Client
}

func NewBus(client *redis.Client) *Bus {
	return &Bus{client: client}
}

// Emit publishes a progress update on the course's channel. Subscribers
// that are not listening right now miss the event; progress is a live
// signal, not a durable record.
func (b *Bus) Emit(ctx context.Context, update pipeline.EmbeddingUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal embedding update: %w", err)
	}
	channel := config.EmbeddingEventsChannel(update.CourseID)
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers every update for the course to handler until the
// returned cancel func is called or ctx ends. Malformed payloads are
// logged and dropped.
func (b *Bus) Subscribe(ctx context.Context, courseID string, handler func(pipeline.EmbeddingUpdate)) func() {
	pubsub := b.client.Subscribe(ctx, config.EmbeddingEventsChannel(courseID))

	go func() {
		for msg := range pubsub.Channel() {
			var update pipeline.EmbeddingUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				slog.WarnContext(ctx, "dropping malformed embedding event", "error", err, "channel", msg.Channel)
				continue
			}
			handler(update)
		}
	}()

	return func() {
		_ = pubsub.Close()
	}
}
