package storage

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher fans attendance events out to a Redis channel so that
// out-of-process consumers (dashboards, secondary loggers) can follow along
// without polling the stores. It also maintains a derived open-session key
// for cheap external lookups.
type RedisPublisher struct {
	client    *redis.Client
	channel   string
	keyPrefix string
}

func NewRedisPublisher(client *redis.Client, channel, keyPrefix string) *RedisPublisher {
	return &RedisPublisher{
		client:    client,
		channel:   channel,
		keyPrefix: keyPrefix,
	}
}

// Publish marshals payload as JSON and publishes it on the configured
// channel.
func (p *RedisPublisher) Publish(ctx context.Context, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return errors.Wrap(err, "failed to publish event")
	}

	return nil
}

// SetOpenSession records the currently open session id.
func (p *RedisPublisher) SetOpenSession(ctx context.Context, sessionID string) error {
	key := p.keyPrefix + "session:open"
	if err := p.client.Set(ctx, key, sessionID, 0).Err(); err != nil {
		return errors.Wrap(err, "failed to set open session key")
	}

	return nil
}

// ClearOpenSession removes the open session id.
func (p *RedisPublisher) ClearOpenSession(ctx context.Context) error {
	key := p.keyPrefix + "session:open"
	if err := p.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "failed to clear open session key")
	}

	return nil
}
