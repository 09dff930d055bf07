package dispatch

import (
	"bytes"
	"context"
	"sync"

	"github.com/aigendrug/cid-dispatch/dispatch/proto"
	"github.com/aigendrug/cid-dispatch/ligand"
	"github.com/aigendrug/cid-dispatch/store"
	"github.com/segmentio/ksuid"
)

// BatchResult reports the outcome of a batch ingestion. Outcomes is in
// row order; a failed row does not remove it from the count.
type BatchResult struct {
	BatchID  string
	Ligands  int
	Outcomes []Outcome
}

// Failed returns the number of rows whose dispatch failed.
func (r *BatchResult) Failed() int {
	var n int
	for _, o := range r.Outcomes {
		if !o.Success {
			n++
		}
	}
	return n
}

// IngestBatch parses a raw ligand batch file and fans it out into one
// train experiment per row, dispatching rows with bounded concurrency.
// A structurally invalid file returns a *ligand.ParseError before any
// side effect. Row dispatches are independent; partial failure is
// normal for large batches and is reported per row.
//
// After the fan-out, one initialize notification carrying the full
// parsed set is published so the fleet knows the job's baseline set
// arrived. It is best-effort relative to the per-row creations.
func (c *Coordinator) IngestBatch(ctx context.Context, jobID int64, filename, contentType string, raw []byte) (*BatchResult, error) {
	ligands, err := ligand.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	batchID := ksuid.New().String()

	c.log.Info("dispatch: ingesting batch", "job", jobID, "batch", batchID, "ligands", len(ligands))

	c.archiveBatchFile(ctx, filename, contentType, raw)

	res := &BatchResult{
		BatchID:  batchID,
		Ligands:  len(ligands),
		Outcomes: make([]Outcome, len(ligands)),
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.batchConcurrency)

	for i, l := range ligands {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, l ligand.Ligand) {
			defer wg.Done()
			defer func() { <-sem }()

			_, out := c.CreateExperiment(ctx, CreateRequest{
				JobID:         jobID,
				Type:          store.TypeTrain,
				Name:          l.Name,
				LigandSMILES:  l.SMILES,
				MeasuredValue: l.StdValue,
			})
			res.Outcomes[i] = out
		}(i, l)
	}

	wg.Wait()

	c.publishInitialize(ctx, jobID, batchID, ligands)

	c.stats.Inc("batch.ingested", 1, 1.0)
	if failed := res.Failed(); failed > 0 {
		c.log.Error("dispatch: batch had failed rows", "job", jobID, "batch", batchID, "failed", failed)
	}

	return res, nil
}

func (c *Coordinator) archiveBatchFile(ctx context.Context, filename, contentType string, raw []byte) {
	if c.blobs == nil {
		return
	}

	url, err := c.blobs.Put(ctx, filename, contentType, raw)
	if err != nil {
		c.log.Error("dispatch: batch file archive failed", "file", filename, "error", err)
		return
	}
	c.log.Debug("dispatch: batch file archived", "url", url)
}

func (c *Coordinator) publishInitialize(ctx context.Context, jobID int64, batchID string, ligands []ligand.Ligand) {
	init := proto.InitializeRequest{
		JobID:   jobID,
		BatchID: batchID,
		Ligands: make([]proto.InitialLigand, 0, len(ligands)),
	}
	for _, l := range ligands {
		init.Ligands = append(init.Ligands, proto.InitialLigand{
			Name:     l.Name,
			SMILES:   l.SMILES,
			StdValue: l.StdValue,
		})
	}

	payload, err := proto.Encode(init)
	if err != nil {
		c.log.Error("dispatch: encoding initialize notification failed", "job", jobID, "error", err)
		return
	}

	if err := c.ch.Publish(ctx, proto.TopicModelInitializeRequest, payload); err != nil {
		c.log.Error("dispatch: initialize notification failed", "job", jobID, "error", err)
		c.stats.Inc("batch.initialize_failed", 1, 1.0)
	}
}
