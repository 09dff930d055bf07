package main

import (
	"context"
	"fmt"

	ciddispatch "github.com/aigendrug/cid-dispatch"
	"github.com/aigendrug/cid-dispatch/blob"
	"github.com/aigendrug/cid-dispatch/channel"
	"github.com/aigendrug/cid-dispatch/channel/kafka"
	"github.com/aigendrug/cid-dispatch/channel/redis"
	"github.com/aigendrug/cid-dispatch/dispatch"
	"github.com/aigendrug/cid-dispatch/store"
	"github.com/aigendrug/cid-dispatch/store/memdb"
	"github.com/aigendrug/cid-dispatch/store/postgres"
	"github.com/hamba/cmd"
)

// Application =============================

func newApplication(c *cmd.Context, coord *dispatch.Coordinator, st store.Store) *ciddispatch.Application {
	return ciddispatch.NewApplication(ciddispatch.Config{
		Coordinator: coord,
		Store:       st,
		Logger:      c.Logger(),
		Statter:     c.Statter(),
	})
}

// Coordinator =============================

func newCoordinator(c *cmd.Context, st store.Store, ch channel.Channel) (*dispatch.Coordinator, error) {
	cfg := dispatch.NewConfig()
	cfg.Store = st
	cfg.Channel = ch
	cfg.BatchConcurrency = c.Int(flagBatchConcurrency)
	cfg.Logger = c.Logger()
	cfg.Statter = c.Statter()

	blobs, err := newBlobs(c)
	if err != nil {
		return nil, err
	}
	cfg.Blobs = blobs

	return dispatch.New(cfg)
}

// Store ===================================

func newStore(c *cmd.Context) (store.Store, func(), error) {
	switch kind := c.String(flagStore); kind {
	case "postgres":
		st, err := postgres.New(context.Background(), c.String(flagPostgresDSN))
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil

	case "memory":
		st, err := memdb.New()
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", kind)
	}
}

// Channel =================================

func newChannel(c *cmd.Context) (channel.Channel, error) {
	switch kind := c.String(flagChannel); kind {
	case "kafka":
		return kafka.New(kafka.Config{
			Brokers:  c.String(flagKafkaBrokers),
			GroupID:  c.String(flagKafkaGroup),
			ClientID: c.String(flagKafkaClientID),
			Logger:   c.Logger(),
		})

	case "redis":
		return redis.New(context.Background(), c.String(flagRedisAddr), c.Logger())

	default:
		return nil, fmt.Errorf("unknown channel %q", kind)
	}
}

// Blobs ===================================

func newBlobs(c *cmd.Context) (blob.Store, error) {
	endpoint := c.String(flagMinioEndpoint)
	if endpoint == "" {
		return nil, nil
	}

	return blob.NewMinio(context.Background(), blob.MinioConfig{
		Endpoint:  endpoint,
		AccessKey: c.String(flagMinioAccessKey),
		SecretKey: c.String(flagMinioSecretKey),
		Bucket:    c.String(flagMinioBucket),
		PublicURL: c.String(flagMinioPublicURL),
	})
}
