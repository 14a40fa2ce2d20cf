package events

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is used if no channel is configured
const DefaultRedisChannel = "sigvault:events"

// RedisPublisher publishes msgpack encoded events on a redis channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to redis and returns a RedisPublisher
func NewRedisPublisher(ctx context.Context, opts *redis.Options, channel string) (*RedisPublisher, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "events: could not connect to redis at '%s'", opts.Addr)
	}
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
	}, nil
}

// Publish implements the Publisher interface
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	return errors.Wrap(p.client.Publish(ctx, p.channel, data).Err(), "events: redis publish failed")
}

// Close implements the Publisher interface
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
