// Package postgres implements the record store on PostgreSQL.
package postgres

import (
	"context"
	"time"

	"github.com/aigendrug/cid-dispatch/store"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Store is a PostgreSQL record store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a record store.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "store: unable to connect to database")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "store: unable to reach database")
	}

	return &Store{pool: pool}, nil
}

type jobRow struct {
	ID            int64     `db:"id"`
	Name          string    `db:"name"`
	TargetProtein string    `db:"target_protein_name"`
	TargetFileURL string    `db:"target_protein_file_url"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r *jobRow) job() *store.Job {
	return &store.Job{
		ID:            r.ID,
		Name:          r.Name,
		TargetProtein: r.TargetProtein,
		TargetFileURL: r.TargetFileURL,
		CreatedAt:     r.CreatedAt,
	}
}

type experimentRow struct {
	ID             int64     `db:"id"`
	JobID          int64     `db:"job_id"`
	Type           int16     `db:"type"`
	Name           string    `db:"name"`
	LigandSMILES   string    `db:"ligand_smiles"`
	PredictedValue *float64  `db:"predicted_value"`
	MeasuredValue  float64   `db:"measured_value"`
	Status         int16     `db:"training_status"`
	CreatedAt      time.Time `db:"created_at"`
	EditedAt       time.Time `db:"edited_at"`
}

func (r *experimentRow) experiment() *store.Experiment {
	return &store.Experiment{
		ID:             r.ID,
		JobID:          r.JobID,
		Type:           store.Type(r.Type),
		Name:           r.Name,
		LigandSMILES:   r.LigandSMILES,
		PredictedValue: r.PredictedValue,
		MeasuredValue:  r.MeasuredValue,
		Status:         store.Status(r.Status),
		CreatedAt:      r.CreatedAt,
		EditedAt:       r.EditedAt,
	}
}

// CreateJob inserts a job, assigning its id.
func (s *Store) CreateJob(ctx context.Context, job *store.Job) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO job (name, target_protein_name, target_protein_file_url)
		 VALUES ($1, $2, $3) RETURNING id, created_at`,
		job.Name, job.TargetProtein, job.TargetFileURL,
	)
	if err := row.Scan(&job.ID, &job.CreatedAt); err != nil {
		return errors.Wrap(err, "store: job insert failed")
	}
	return nil
}

// Job returns a job with the given id or nil.
func (s *Store) Job(ctx context.Context, id int64) (*store.Job, error) {
	var row jobRow
	err := pgxscan.Get(ctx, s.pool, &row, `SELECT * FROM job WHERE id = $1`, id)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: job lookup failed")
	}
	return row.job(), nil
}

// Jobs returns all jobs.
func (s *Store) Jobs(ctx context.Context) ([]*store.Job, error) {
	var rows []*jobRow
	if err := pgxscan.Select(ctx, s.pool, &rows, `SELECT * FROM job ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "store: job lookup failed")
	}

	jobs := make([]*store.Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, r.job())
	}
	return jobs, nil
}

// DeleteJob deletes a job and all of its experiments in one transaction.
func (s *Store) DeleteJob(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM experiment WHERE job_id = $1`, id); err != nil {
			return errors.Wrap(err, "store: experiment delete failed")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM job WHERE id = $1`, id); err != nil {
			return errors.Wrap(err, "store: job delete failed")
		}
		return nil
	})
}

// CreateExperiment inserts an experiment, assigning its id.
func (s *Store) CreateExperiment(ctx context.Context, exp *store.Experiment) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO experiment (job_id, type, name, ligand_smiles, measured_value, training_status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, edited_at`,
		exp.JobID, int16(exp.Type), exp.Name, exp.LigandSMILES, exp.MeasuredValue, int16(exp.Status),
	)
	if err := row.Scan(&exp.ID, &exp.CreatedAt, &exp.EditedAt); err != nil {
		return errors.Wrap(err, "store: experiment insert failed")
	}
	return nil
}

// Experiment returns an experiment with the given id or nil.
func (s *Store) Experiment(ctx context.Context, id int64) (*store.Experiment, error) {
	var row experimentRow
	err := pgxscan.Get(ctx, s.pool, &row, `SELECT * FROM experiment WHERE id = $1`, id)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: experiment lookup failed")
	}
	return row.experiment(), nil
}

// Experiments returns all experiments.
func (s *Store) Experiments(ctx context.Context) ([]*store.Experiment, error) {
	return s.selectExperiments(ctx, `SELECT * FROM experiment ORDER BY id`)
}

// ExperimentsByJob returns the experiments belonging to a job.
func (s *Store) ExperimentsByJob(ctx context.Context, jobID int64) ([]*store.Experiment, error) {
	return s.selectExperiments(ctx, `SELECT * FROM experiment WHERE job_id = $1 ORDER BY id`, jobID)
}

func (s *Store) selectExperiments(ctx context.Context, sql string, args ...interface{}) ([]*store.Experiment, error) {
	var rows []*experimentRow
	if err := pgxscan.Select(ctx, s.pool, &rows, sql, args...); err != nil {
		return nil, errors.Wrap(err, "store: experiment lookup failed")
	}

	exps := make([]*store.Experiment, 0, len(rows))
	for _, r := range rows {
		exps = append(exps, r.experiment())
	}
	return exps, nil
}

// SetStatus updates the status of an experiment. Updating an absent
// id is a no-op.
func (s *Store) SetStatus(ctx context.Context, id int64, status store.Status) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE experiment SET training_status = $1, edited_at = now() WHERE id = $2`,
		int16(status), id,
	)
	if err != nil {
		return errors.Wrap(err, "store: experiment update failed")
	}
	return nil
}

// SetPredicted updates the predicted value of an experiment. Updating
// an absent id is a no-op.
func (s *Store) SetPredicted(ctx context.Context, id int64, value float64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE experiment SET predicted_value = $1, edited_at = now() WHERE id = $2`,
		value, id,
	)
	if err != nil {
		return errors.Wrap(err, "store: experiment update failed")
	}
	return nil
}

// DeleteExperiment deletes an experiment.
func (s *Store) DeleteExperiment(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM experiment WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "store: experiment delete failed")
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
