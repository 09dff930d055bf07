package dispatch

import (
	"context"

	"github.com/aigendrug/cid-dispatch/channel"
	"github.com/aigendrug/cid-dispatch/dispatch/proto"
	"github.com/aigendrug/cid-dispatch/store"
)

// Run runs the response reconciler: a standing subscription over the
// train and inference response topics, applying each response to the
// matching experiment record. It blocks until the context is cancelled.
//
// Delivery is at-least-once and unordered. Every write here is an
// idempotent partial update, so duplicates and interleavings are
// harmless. Responses are applied unconditionally, last-write-wins,
// even when the experiment is already completed or failed.
func (c *Coordinator) Run(ctx context.Context) error {
	topics := []string{
		proto.TopicModelTrainResponse,
		proto.TopicModelInferenceResponse,
	}

	c.log.Info("dispatch: reconciler starting", "topics", topics)

	return c.ch.Subscribe(ctx, topics, c.handleResponse)
}

// handleResponse applies one response message. A decode or store error
// drops the message and keeps the loop alive; one bad message must
// never stall consumption.
func (c *Coordinator) handleResponse(ctx context.Context, msg channel.Message) {
	switch msg.Topic {
	case proto.TopicModelInferenceResponse:
		var resp proto.InferenceResponse
		if err := proto.Decode(msg.Value, &resp); err != nil {
			c.log.Error("dispatch: dropping undecodable inference response", "error", err)
			c.stats.Inc("reconcile.invalid", 1, 1.0)
			return
		}

		if err := c.store.SetPredicted(ctx, resp.ExperimentID, resp.PredictedValue); err != nil {
			c.log.Error("dispatch: predicted value write failed", "experiment", resp.ExperimentID, "error", err)
			c.stats.Inc("reconcile.failed", 1, 1.0)
			return
		}
		if err := c.store.SetStatus(ctx, resp.ExperimentID, store.StatusCompleted); err != nil {
			c.log.Error("dispatch: status write failed", "experiment", resp.ExperimentID, "error", err)
			c.stats.Inc("reconcile.failed", 1, 1.0)
			return
		}

		c.log.Debug("dispatch: inference response reconciled", "experiment", resp.ExperimentID)
		c.stats.Inc("reconcile.completed", 1, 1.0)

	case proto.TopicModelTrainResponse:
		var resp proto.TrainResponse
		if err := proto.Decode(msg.Value, &resp); err != nil {
			c.log.Error("dispatch: dropping undecodable train response", "error", err)
			c.stats.Inc("reconcile.invalid", 1, 1.0)
			return
		}

		if err := c.store.SetStatus(ctx, resp.ExperimentID, store.StatusCompleted); err != nil {
			c.log.Error("dispatch: status write failed", "experiment", resp.ExperimentID, "error", err)
			c.stats.Inc("reconcile.failed", 1, 1.0)
			return
		}

		c.log.Debug("dispatch: train response reconciled", "experiment", resp.ExperimentID)
		c.stats.Inc("reconcile.completed", 1, 1.0)

	default:
		c.log.Error("dispatch: message on unexpected topic", "topic", msg.Topic)
	}
}
