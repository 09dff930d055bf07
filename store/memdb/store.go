// Package memdb implements an in-memory record store, used by tests
// and broker-less local runs.
package memdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aigendrug/cid-dispatch/store"
	"github.com/hashicorp/go-memdb"
)

// Store is an in-memory record store.
type Store struct {
	db *memdb.MemDB

	jobID int64
	expID int64
}

// New returns an in-memory record store.
func New() (*Store, error) {
	dbSchema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"jobs":        jobsTableSchema(),
			"experiments": experimentsTableSchema(),
		},
	}

	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func jobsTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: "jobs",
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:         "id",
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.IntFieldIndex{
					Field: "ID",
				},
			},
		},
	}
}

func experimentsTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: "experiments",
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:         "id",
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.IntFieldIndex{
					Field: "ID",
				},
			},
			"job": {
				Name:         "job",
				AllowMissing: false,
				Unique:       false,
				Indexer: &memdb.IntFieldIndex{
					Field: "JobID",
				},
			},
		},
	}
}

// CreateJob inserts a job, assigning its id.
func (s *Store) CreateJob(_ context.Context, job *store.Job) error {
	job.ID = atomic.AddInt64(&s.jobID, 1)
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	tx := s.db.Txn(true)
	defer tx.Abort()

	cp := *job
	if err := tx.Insert("jobs", &cp); err != nil {
		return fmt.Errorf("store: job insert failed: %w", err)
	}

	tx.Commit()
	return nil
}

// Job returns a job with the given id or nil.
func (s *Store) Job(_ context.Context, id int64) (*store.Job, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	raw, err := tx.First("jobs", "id", id)
	if err != nil {
		return nil, fmt.Errorf("store: job lookup failed: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	cp := *raw.(*store.Job)
	return &cp, nil
}

// Jobs returns all jobs.
func (s *Store) Jobs(_ context.Context) ([]*store.Job, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	iter, err := tx.Get("jobs", "id")
	if err != nil {
		return nil, fmt.Errorf("store: job lookup failed: %w", err)
	}

	var jobs []*store.Job
	for next := iter.Next(); next != nil; next = iter.Next() {
		cp := *next.(*store.Job)
		jobs = append(jobs, &cp)
	}
	return jobs, nil
}

// DeleteJob deletes a job and all of its experiments in one transaction.
func (s *Store) DeleteJob(_ context.Context, id int64) error {
	tx := s.db.Txn(true)
	defer tx.Abort()

	if _, err := tx.DeleteAll("experiments", "job", id); err != nil {
		return fmt.Errorf("store: experiment delete failed: %w", err)
	}
	if _, err := tx.DeleteAll("jobs", "id", id); err != nil {
		return fmt.Errorf("store: job delete failed: %w", err)
	}

	tx.Commit()
	return nil
}

// CreateExperiment inserts an experiment, assigning its id.
func (s *Store) CreateExperiment(_ context.Context, exp *store.Experiment) error {
	exp.ID = atomic.AddInt64(&s.expID, 1)
	now := time.Now().UTC()
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = now
	}
	exp.EditedAt = now

	tx := s.db.Txn(true)
	defer tx.Abort()

	cp := *exp
	if err := tx.Insert("experiments", &cp); err != nil {
		return fmt.Errorf("store: experiment insert failed: %w", err)
	}

	tx.Commit()
	return nil
}

// Experiment returns an experiment with the given id or nil.
func (s *Store) Experiment(_ context.Context, id int64) (*store.Experiment, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	return getExperimentTx(tx, id)
}

// Experiments returns all experiments.
func (s *Store) Experiments(_ context.Context) ([]*store.Experiment, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	return experimentsTx(tx, "id")
}

// ExperimentsByJob returns the experiments belonging to a job.
func (s *Store) ExperimentsByJob(_ context.Context, jobID int64) ([]*store.Experiment, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	return experimentsTx(tx, "job", jobID)
}

// SetStatus updates the status of an experiment. Updating an absent
// id is a no-op.
func (s *Store) SetStatus(_ context.Context, id int64, status store.Status) error {
	return s.updateExperiment(id, func(exp *store.Experiment) {
		exp.Status = status
	})
}

// SetPredicted updates the predicted value of an experiment. Updating
// an absent id is a no-op.
func (s *Store) SetPredicted(_ context.Context, id int64, value float64) error {
	return s.updateExperiment(id, func(exp *store.Experiment) {
		exp.PredictedValue = &value
	})
}

// DeleteExperiment deletes an experiment.
func (s *Store) DeleteExperiment(_ context.Context, id int64) error {
	tx := s.db.Txn(true)
	defer tx.Abort()

	if _, err := tx.DeleteAll("experiments", "id", id); err != nil {
		return fmt.Errorf("store: experiment delete failed: %w", err)
	}

	tx.Commit()
	return nil
}

func (s *Store) updateExperiment(id int64, fn func(exp *store.Experiment)) error {
	tx := s.db.Txn(true)
	defer tx.Abort()

	exp, err := getExperimentTx(tx, id)
	if err != nil {
		return err
	}
	if exp == nil {
		return nil
	}

	fn(exp)
	exp.EditedAt = time.Now().UTC()

	if err := tx.Insert("experiments", exp); err != nil {
		return fmt.Errorf("store: experiment update failed: %w", err)
	}

	tx.Commit()
	return nil
}

func getExperimentTx(tx *memdb.Txn, id int64) (*store.Experiment, error) {
	raw, err := tx.First("experiments", "id", id)
	if err != nil {
		return nil, fmt.Errorf("store: experiment lookup failed: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	cp := *raw.(*store.Experiment)
	return &cp, nil
}

func experimentsTx(tx *memdb.Txn, index string, args ...interface{}) ([]*store.Experiment, error) {
	iter, err := tx.Get("experiments", index, args...)
	if err != nil {
		return nil, fmt.Errorf("store: experiment lookup failed: %w", err)
	}

	var exps []*store.Experiment
	for next := iter.Next(); next != nil; next = iter.Next() {
		cp := *next.(*store.Experiment)
		exps = append(exps, &cp)
	}
	return exps, nil
}
