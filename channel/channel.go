// Package channel defines the topic-addressed message channel joining
// the coordinator to the worker fleet.
package channel

import "context"

// Message is a message received from a topic.
type Message struct {
	Topic string
	Value []byte
}

// Handler handles a received message. It must not panic; delivery is
// at-least-once and unordered, so handlers must be safe to call with
// duplicates and in any order.
type Handler func(ctx context.Context, msg Message)

// Channel represents an at-least-once, topic-addressed message channel.
type Channel interface {
	// Publish publishes a payload to a topic, returning once the
	// channel has accepted or refused the message.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe consumes the given topics, invoking the handler for
	// each received message. It blocks until the context is cancelled
	// or the subscription fails.
	Subscribe(ctx context.Context, topics []string, handler Handler) error

	// Close closes the channel.
	Close() error
}
