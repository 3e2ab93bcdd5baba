package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/qualitrack/qc-api/pkg/event"
)

// Config holds the redis connection settings for the event publisher.
type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
	Channel      string
}

// Emitter publishes change events to a redis pub/sub channel.
type Emitter struct {
	client  *redis.Client
	channel string
	logger  *zerolog.Logger
}

// NewEmitter connects to redis and returns a publishing emitter.
func NewEmitter(cfg Config, logger *zerolog.Logger) (*Emitter, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	opts.MaxRetries = cfg.MaxRetries
	opts.MinRetryBackoff = cfg.RetryBackoff
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = "qc.entity.changes"
	}

	return &Emitter{client: client, channel: channel, logger: logger}, nil
}

// Emit publishes the event, logging on failure instead of returning it.
func (e *Emitter) Emit(ctx context.Context, evt event.ChangeEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		e.logger.Error().Err(err).Str("entity", evt.Entity).Msg("failed to marshal change event")
		return
	}
	if err := e.client.Publish(ctx, e.channel, payload).Err(); err != nil {
		e.logger.Error().Err(err).
			Str("entity", evt.Entity).
			Str("code", evt.Code).
			Str("action", evt.Action).
			Msg("failed to publish change event")
	}
}

// Close releases the redis connection.
func (e *Emitter) Close() error {
	return e.client.Close()
}
