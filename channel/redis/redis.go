// Package redis implements the message channel on Redis Streams. It is
// intended for local development, where running a Kafka cluster is
// unnecessarily heavy.
package redis

import (
	"context"
	"time"

	"github.com/aigendrug/cid-dispatch/channel"
	"github.com/hamba/pkg/log"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const payloadField = "payload"

// Channel is a Redis Streams backed message channel.
type Channel struct {
	client *redis.Client

	log log.Logger
}

// New connects to Redis and returns a channel.
func New(ctx context.Context, addr string, logger log.Logger) (*Channel, error) {
	if logger == nil {
		logger = log.Null
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis: failed to connect")
	}

	return &Channel{client: client, log: logger}, nil
}

// Publish appends the payload to the topic's stream.
func (c *Channel) Publish(ctx context.Context, topic string, payload []byte) error {
	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{payloadField: payload},
	}).Err()
	if err != nil {
		return errors.Wrapf(err, "redis: publish to %s failed", topic)
	}
	return nil
}

// Subscribe reads the topic streams, invoking the handler for each
// received entry until the context is cancelled.
func (c *Channel) Subscribe(ctx context.Context, topics []string, handler channel.Handler) error {
	last := make(map[string]string, len(topics))
	for _, t := range topics {
		last[t] = "$"
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// XRead wants stream names followed by last-seen ids.
		args := make([]string, 0, len(topics)*2)
		args = append(args, topics...)
		for _, t := range topics {
			args = append(args, last[t])
		}

		res, err := c.client.XRead(ctx, &redis.XReadArgs{
			Streams: args,
			Block:   time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil || errors.Is(err, context.Canceled) {
				continue
			}
			c.log.Error("redis: read error", "error", err)
			continue
		}

		for _, stream := range res {
			for _, entry := range stream.Messages {
				last[stream.Stream] = entry.ID

				raw, ok := entry.Values[payloadField].(string)
				if !ok {
					c.log.Error("redis: entry without payload", "stream", stream.Stream, "id", entry.ID)
					continue
				}

				handler(ctx, channel.Message{
					Topic: stream.Stream,
					Value: []byte(raw),
				})
			}
		}
	}
}

// Close closes the client.
func (c *Channel) Close() error {
	return c.client.Close()
}
