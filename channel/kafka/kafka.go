// Package kafka implements the message channel on Apache Kafka.
package kafka

import (
	"context"
	"time"

	"github.com/aigendrug/cid-dispatch/channel"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/hamba/pkg/log"
	"github.com/pkg/errors"
)

// Config configures a Kafka channel.
type Config struct {
	// Brokers is the bootstrap broker list.
	Brokers string

	// GroupID is the consumer group id.
	GroupID string

	// ClientID is the client id reported to the brokers.
	ClientID string

	// Logger is the logger to log to.
	Logger log.Logger
}

// Channel is a Kafka-backed message channel.
type Channel struct {
	producer *kafka.Producer
	consumer *kafka.Consumer

	log log.Logger
}

// New returns a Kafka channel.
func New(cfg Config) (*Channel, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Null
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"client.id":         cfg.ClientID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "kafka: failed to create producer")
	}

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"group.id":          cfg.GroupID,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		producer.Close()
		return nil, errors.Wrap(err, "kafka: failed to create consumer")
	}

	return &Channel{
		producer: producer,
		consumer: consumer,
		log:      logger,
	}, nil
}

// Publish publishes a payload to a topic, waiting for the broker to
// confirm or refuse delivery.
func (c *Channel) Publish(ctx context.Context, topic string, payload []byte) error {
	deliveryChan := make(chan kafka.Event, 1)

	err := c.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          payload,
	}, deliveryChan)
	if err != nil {
		return errors.Wrapf(err, "kafka: produce to %s failed", topic)
	}

	select {
	case ev := <-deliveryChan:
		msg, ok := ev.(*kafka.Message)
		if !ok {
			return errors.Errorf("kafka: unexpected delivery event %T", ev)
		}
		if msg.TopicPartition.Error != nil {
			return errors.Wrapf(msg.TopicPartition.Error, "kafka: delivery to %s failed", topic)
		}
		return nil

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe consumes the given topics, invoking the handler for each
// received message until the context is cancelled.
func (c *Channel) Subscribe(ctx context.Context, topics []string, handler channel.Handler) error {
	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		return errors.Wrap(err, "kafka: subscribe failed")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := c.consumer.ReadMessage(time.Second)
		if err != nil {
			if kafkaErr, ok := err.(kafka.Error); ok && kafkaErr.IsTimeout() {
				continue
			}
			c.log.Error("kafka: consumer error", "error", err)
			continue
		}

		handler(ctx, channel.Message{
			Topic: *msg.TopicPartition.Topic,
			Value: msg.Value,
		})
	}
}

// Close closes the producer and consumer.
func (c *Channel) Close() error {
	c.producer.Close()
	return c.consumer.Close()
}
