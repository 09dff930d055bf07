package dispatch

import (
	"github.com/aigendrug/cid-dispatch/blob"
	"github.com/aigendrug/cid-dispatch/channel"
	"github.com/aigendrug/cid-dispatch/store"
	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
)

// DefaultBatchConcurrency is the default number of concurrent row
// dispatches during batch ingestion.
const DefaultBatchConcurrency = 4

// Config holds the configuration for a Coordinator.
type Config struct {
	// Store is the record store for jobs and experiments.
	Store store.Store

	// Channel is the message channel to the worker fleet.
	Channel channel.Channel

	// Blobs is the archive for raw batch files. Optional; when nil,
	// uploaded files are not archived.
	Blobs blob.Store

	// BatchConcurrency bounds the number of rows dispatched
	// concurrently during batch ingestion.
	BatchConcurrency int

	// Logger is the logger to log to.
	Logger log.Logger

	// Statter is the statter to send stats to.
	Statter stats.Statter
}

// NewConfig creates/returns a default configuration.
func NewConfig() Config {
	return Config{
		BatchConcurrency: DefaultBatchConcurrency,
		Logger:           log.Null,
		Statter:          stats.Null,
	}
}
