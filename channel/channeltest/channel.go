// Package channeltest provides an in-process message channel for tests.
package channeltest

import (
	"context"
	"sync"

	"github.com/aigendrug/cid-dispatch/channel"
	"github.com/pkg/errors"
)

// Channel is an in-process channel that records publishes and delivers
// them synchronously to subscribed handlers.
type Channel struct {
	mu        sync.Mutex
	published map[string][][]byte
	failing   map[string]error
	failFn    func(topic string, payload []byte) error
	handler   channel.Handler
	topics    map[string]bool

	closedCh chan struct{}
}

// New returns an in-process test channel.
func New() *Channel {
	return &Channel{
		published: map[string][][]byte{},
		failing:   map[string]error{},
		topics:    map[string]bool{},
		closedCh:  make(chan struct{}),
	}
}

// FailTopic makes publishes to a topic return the given error.
func (c *Channel) FailTopic(topic string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failing[topic] = err
}

// FailFunc makes publishes fail when fn returns a non-nil error for
// the published payload.
func (c *Channel) FailFunc(fn func(topic string, payload []byte) error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failFn = fn
}

// Publish records the payload, delivering it to the subscribed handler
// if the topic is subscribed.
func (c *Channel) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()

	if err, ok := c.failing[topic]; ok {
		c.mu.Unlock()
		return errors.Wrapf(err, "channeltest: publish to %s failed", topic)
	}
	if c.failFn != nil {
		if err := c.failFn(topic, payload); err != nil {
			c.mu.Unlock()
			return err
		}
	}

	c.published[topic] = append(c.published[topic], payload)
	handler := c.handler
	subscribed := c.topics[topic]
	c.mu.Unlock()

	if handler != nil && subscribed {
		handler(ctx, channel.Message{Topic: topic, Value: payload})
	}
	return nil
}

// Subscribe registers the handler and blocks until the context is
// cancelled or the channel is closed.
func (c *Channel) Subscribe(ctx context.Context, topics []string, handler channel.Handler) error {
	c.mu.Lock()
	c.handler = handler
	for _, t := range topics {
		c.topics[t] = true
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-c.closedCh:
	}
	return nil
}

// Deliver injects a message as if it arrived from the channel,
// bypassing Publish bookkeeping.
func (c *Channel) Deliver(ctx context.Context, topic string, payload []byte) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()

	if handler != nil {
		handler(ctx, channel.Message{Topic: topic, Value: payload})
	}
}

// Published returns the payloads published to a topic.
func (c *Channel) Published(topic string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([][]byte(nil), c.published[topic]...)
}

// PublishCount returns the number of payloads published to a topic.
func (c *Channel) PublishCount(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.published[topic])
}

// Subscribed determines if a handler has been registered.
func (c *Channel) Subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.handler != nil
}

// Close closes the channel, releasing any blocked Subscribe.
func (c *Channel) Close() error {
	close(c.closedCh)
	return nil
}
