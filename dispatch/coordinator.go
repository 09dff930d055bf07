// Package dispatch implements the experiment dispatch and status
// coordination core: turning experiment requests into published work
// items and reconciling response messages back onto experiment records.
//
// The record store and message channel are collaborators with narrow
// contracts; the coordinator performs no in-process locking and relies
// on the store's per-row last-write-wins update semantics.
package dispatch

import (
	"github.com/aigendrug/cid-dispatch/blob"
	"github.com/aigendrug/cid-dispatch/channel"
	"github.com/aigendrug/cid-dispatch/store"
	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/pkg/errors"
)

// Coordinator coordinates experiment dispatch and status reconciliation.
type Coordinator struct {
	store store.Store
	ch    channel.Channel
	blobs blob.Store

	batchConcurrency int

	log   log.Logger
	stats stats.Statter
}

// New returns a coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("dispatch: store cannot be nil")
	}
	if cfg.Channel == nil {
		return nil, errors.New("dispatch: channel cannot be nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Null
	}
	statter := cfg.Statter
	if statter == nil {
		statter = stats.Null
	}

	concurrency := cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	return &Coordinator{
		store:            cfg.Store,
		ch:               cfg.Channel,
		blobs:            cfg.Blobs,
		batchConcurrency: concurrency,
		log:              logger,
		stats:            statter,
	}, nil
}
