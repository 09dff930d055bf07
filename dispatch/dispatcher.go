package dispatch

import (
	"context"

	"github.com/aigendrug/cid-dispatch/dispatch/proto"
	"github.com/aigendrug/cid-dispatch/store"
	"github.com/pkg/errors"
)

// ErrInvalidType is returned when an experiment carries an unknown
// request type.
var ErrInvalidType = errors.New("dispatch: invalid experiment type")

// Outcome describes the result of a dispatch attempt. Status is the
// human-readable outcome reported to the caller.
type Outcome struct {
	Success bool
	Status  string
	Err     error
}

// CreateRequest describes a new experiment.
type CreateRequest struct {
	JobID         int64
	Type          store.Type
	Name          string
	LigandSMILES  string
	MeasuredValue float64
}

// CreateExperiment persists a new experiment and dispatches it. This is
// the single-experiment creation path; batch ingestion routes every row
// through it.
func (c *Coordinator) CreateExperiment(ctx context.Context, req CreateRequest) (*store.Experiment, Outcome) {
	exp := &store.Experiment{
		JobID:         req.JobID,
		Type:          req.Type,
		Name:          req.Name,
		LigandSMILES:  req.LigandSMILES,
		MeasuredValue: req.MeasuredValue,
		Status:        store.StatusCreated,
	}

	if err := c.store.CreateExperiment(ctx, exp); err != nil {
		return nil, Outcome{Status: "Experiment creation failed: " + err.Error(), Err: err}
	}

	return exp, c.Dispatch(ctx, exp)
}

// Dispatch builds the work-item message for an experiment, publishes it
// to the topic selected by the experiment's type, and records the
// resulting status.
//
// The status write is a separate store call after the publish resolves.
// A crash between a successful publish and the status write leaves the
// experiment at created even though the work item went out; recovering
// from that window needs an external reconciliation sweep.
func (c *Coordinator) Dispatch(ctx context.Context, exp *store.Experiment) Outcome {
	var (
		topic   string
		payload []byte
		err     error
	)

	switch exp.Type {
	case store.TypeTrain:
		topic = proto.TopicModelTrainRequest
		payload, err = proto.Encode(proto.TrainRequest{
			JobID:        exp.JobID,
			ExperimentID: exp.ID,
			ProteinData:  exp.LigandSMILES,
			TargetValue:  exp.MeasuredValue,
		})

	case store.TypeInfer:
		topic = proto.TopicModelInferenceRequest
		payload, err = proto.Encode(proto.InferenceRequest{
			JobID:        exp.JobID,
			ExperimentID: exp.ID,
			ProteinData:  exp.LigandSMILES,
		})

	default:
		c.setStatus(ctx, exp, store.StatusFailed)
		c.stats.Inc("dispatch.invalid", 1, 1.0)
		return Outcome{Status: "Invalid experiment type", Err: ErrInvalidType}
	}

	if err != nil {
		c.setStatus(ctx, exp, store.StatusFailed)
		return Outcome{Status: requestFailed(exp.Type, err), Err: err}
	}

	if err := c.ch.Publish(ctx, topic, payload); err != nil {
		c.setStatus(ctx, exp, store.StatusFailed)
		c.stats.Inc("dispatch.failed", 1, 1.0)
		c.log.Error("dispatch: publish failed", "experiment", exp.ID, "topic", topic, "error", err)
		return Outcome{Status: requestFailed(exp.Type, err), Err: err}
	}

	c.setStatus(ctx, exp, store.StatusDispatched)
	c.stats.Inc("dispatch.published", 1, 1.0)

	return Outcome{Success: true, Status: "Experiment created"}
}

func (c *Coordinator) setStatus(ctx context.Context, exp *store.Experiment, status store.Status) {
	if err := c.store.SetStatus(ctx, exp.ID, status); err != nil {
		c.log.Error("dispatch: status write failed", "experiment", exp.ID, "status", status, "error", err)
		return
	}
	exp.Status = status
}

func requestFailed(t store.Type, err error) string {
	if t == store.TypeInfer {
		return "Model inference request failed: " + err.Error()
	}
	return "Model training request failed: " + err.Error()
}
