// Package redis publishes task events to a Redis channel so processes other
// than the server can follow task progress.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/events"
)

// publishTimeout bounds a single PUBLISH so a stalled Redis cannot hold up
// the scheduler.
const publishTimeout = 2 * time.Second

// channelPublisher is the part of *redis.Client the publisher uses.
type channelPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NewClient connects to the Redis server in cfg and checks the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Publisher implements events.EventHandler by publishing each event as JSON.
type Publisher struct {
	client  channelPublisher
	channel string
	logger  *slog.Logger
}

// NewPublisher creates a Publisher on the given channel.
func NewPublisher(client channelPublisher, channel string, logger *slog.Logger) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if channel == "" {
		return nil, errors.New("redis channel cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:  client,
		channel: channel,
		logger:  logger.With("component", "redis_publisher", "channel", channel),
	}, nil
}

// HandleEvent implements events.EventHandler.
func (p *Publisher) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode task event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish task event %s: %w", event.ID, err)
	}

	p.logger.Debug("published task event",
		"event_id", event.ID,
		"task_id", event.TaskID,
		"event_type", event.Type,
		"receivers", receivers)
	return nil
}

var _ events.EventHandler = (*Publisher)(nil)
