package store

import (
	"context"
	"time"
)

// Status is the dispatch status of an experiment.
type Status int8

// Status constants.
const (
	StatusCreated Status = iota
	StatusDispatched
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusDispatched:
		return "dispatched"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal determines if no further automated transition leaves the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ValidTransition determines if the status machine allows moving
// from one status to another on the dispatch path. The reconciler
// intentionally does not consult this; its writes are last-write-wins.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusCreated:
		return to == StatusDispatched || to == StatusFailed
	case StatusDispatched:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}

// Type is the kind of work an experiment requests.
type Type int8

// Experiment type constants.
const (
	TypeTrain Type = iota
	TypeInfer
)

// Job is used to store info about a target protein and its experiments.
type Job struct {
	ID            int64
	Name          string
	TargetProtein string
	TargetFileURL string
	CreatedAt     time.Time
}

// Experiment is used to store info about a unit of dispatched work.
type Experiment struct {
	ID             int64
	JobID          int64
	Type           Type
	Name           string
	LigandSMILES   string
	PredictedValue *float64
	MeasuredValue  float64
	Status         Status
	CreatedAt      time.Time
	EditedAt       time.Time
}

// Store is the record store for jobs and experiments.
//
// Updates are per-row atomic partial updates. SetStatus and SetPredicted
// on an absent id are no-ops, not errors; the reconciler depends on that.
type Store interface {
	// CreateJob inserts a job, assigning its id.
	CreateJob(ctx context.Context, job *Job) error

	// Job returns a job with the given id or nil.
	Job(ctx context.Context, id int64) (*Job, error)

	// Jobs returns all jobs.
	Jobs(ctx context.Context) ([]*Job, error)

	// DeleteJob deletes a job and all of its experiments.
	DeleteJob(ctx context.Context, id int64) error

	// CreateExperiment inserts an experiment, assigning its id.
	CreateExperiment(ctx context.Context, exp *Experiment) error

	// Experiment returns an experiment with the given id or nil.
	Experiment(ctx context.Context, id int64) (*Experiment, error)

	// Experiments returns all experiments.
	Experiments(ctx context.Context) ([]*Experiment, error)

	// ExperimentsByJob returns the experiments belonging to a job.
	ExperimentsByJob(ctx context.Context, jobID int64) ([]*Experiment, error)

	// SetStatus updates the status of an experiment.
	SetStatus(ctx context.Context, id int64, status Status) error

	// SetPredicted updates the predicted value of an experiment.
	SetPredicted(ctx context.Context, id int64, value float64) error

	// DeleteExperiment deletes an experiment.
	DeleteExperiment(ctx context.Context, id int64) error
}
