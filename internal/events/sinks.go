package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/damoang/angple-qualitygate/internal/metrics"
	"github.com/damoang/angple-qualitygate/pkg/logger"
)

// MetricsSink counts lifecycle events by type
func MetricsSink() Handler {
	return func(event Event) {
		metrics.LifecycleEvents.WithLabelValues(string(event.Type)).Inc()
	}
}

// LogSink writes one structured log line per event
func LogSink() Handler {
	return func(event Event) {
		logger.WithPost(event.TenantID, event.PostID).Info().
			Str("type", string(event.Type)).
			Str("actor", event.Actor).
			Msg("post lifecycle event")
	}
}

// RedisSink publishes events as JSON on a Redis channel so that the publishing
// scheduler can react without polling. Failures are logged and dropped; the
// audit log stays the source of truth.
func RedisSink(client *redis.Client, channel string) Handler {
	return func(event Event) {
		payload, err := json.Marshal(event)
		if err != nil {
			logger.GetLogger().Warn().Err(err).Msg("failed to encode lifecycle event")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Publish(ctx, channel, payload).Err(); err != nil {
			logger.GetLogger().Warn().Err(err).Str("channel", channel).Str("post_id", event.PostID).Msg("failed to publish lifecycle event")
		}
	}
}
