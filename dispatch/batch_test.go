package dispatch_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/aigendrug/cid-dispatch/dispatch/proto"
	"github.com/aigendrug/cid-dispatch/ligand"
	"github.com/aigendrug/cid-dispatch/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_IngestBatch(t *testing.T) {
	ctx := context.Background()
	st, ch, coord := newCoordinator(t)

	file := []byte("name,smiles,std_value\nlig-1,CCO,1.5\nlig-2,CCN,2.5\nlig-3,c1ccccc1,0.25\n")

	res, err := coord.IngestBatch(ctx, 1, "ligands.csv", "text/csv", file)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Ligands)
	assert.Equal(t, 0, res.Failed())
	assert.NotEmpty(t, res.BatchID)

	exps, err := st.ExperimentsByJob(ctx, 1)
	require.NoError(t, err)
	require.Len(t, exps, 3)
	for _, exp := range exps {
		assert.Equal(t, store.TypeTrain, exp.Type)
		assert.Equal(t, store.StatusDispatched, exp.Status)
	}

	assert.Equal(t, 3, ch.PublishCount(proto.TopicModelTrainRequest))
}

func TestCoordinator_IngestBatchInvalidFile(t *testing.T) {
	ctx := context.Background()
	st, ch, coord := newCoordinator(t)

	file := []byte("name,smiles,std_value\nlig-1,CCO,1.5\nlig-2,CCN,abc\n")

	res, err := coord.IngestBatch(ctx, 1, "ligands.csv", "text/csv", file)
	require.Error(t, err)
	assert.Nil(t, res)

	var parseErr *ligand.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, parseErr.Row)

	// A malformed file must have no side effects at all.
	exps, err := st.Experiments(ctx)
	require.NoError(t, err)
	assert.Len(t, exps, 0)
	assert.Equal(t, 0, ch.PublishCount(proto.TopicModelTrainRequest))
	assert.Equal(t, 0, ch.PublishCount(proto.TopicModelInitializeRequest))
}

func TestCoordinator_IngestBatchPartialFailure(t *testing.T) {
	ctx := context.Background()
	st, ch, coord := newCoordinator(t)

	// Refuse only the second row's work item.
	ch.FailFunc(func(topic string, payload []byte) error {
		if topic == proto.TopicModelTrainRequest && bytes.Contains(payload, []byte("CCN")) {
			return errors.New("broker refused")
		}
		return nil
	})

	file := []byte("name,smiles,std_value\nlig-1,CCO,1.5\nlig-2,CCN,2.5\nlig-3,c1ccccc1,0.25\n")

	res, err := coord.IngestBatch(ctx, 1, "ligands.csv", "text/csv", file)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Ligands)
	assert.Equal(t, 1, res.Failed())
	assert.False(t, res.Outcomes[1].Success)
	assert.True(t, res.Outcomes[0].Success)
	assert.True(t, res.Outcomes[2].Success)

	exps, err := st.ExperimentsByJob(ctx, 1)
	require.NoError(t, err)
	require.Len(t, exps, 3)

	statuses := map[string]store.Status{}
	for _, exp := range exps {
		statuses[exp.LigandSMILES] = exp.Status
	}
	assert.Equal(t, store.StatusDispatched, statuses["CCO"])
	assert.Equal(t, store.StatusFailed, statuses["CCN"])
	assert.Equal(t, store.StatusDispatched, statuses["c1ccccc1"])
}

func TestCoordinator_IngestBatchPublishesInitialize(t *testing.T) {
	ctx := context.Background()
	_, ch, coord := newCoordinator(t)

	file := []byte("name,smiles,std_value\nlig-1,CCO,1.5\nlig-2,CCN,2.5\n")

	res, err := coord.IngestBatch(ctx, 7, "ligands.csv", "text/csv", file)
	require.NoError(t, err)

	msgs := ch.Published(proto.TopicModelInitializeRequest)
	require.Len(t, msgs, 1)

	var init proto.InitializeRequest
	require.NoError(t, proto.Decode(msgs[0], &init))
	assert.Equal(t, int64(7), init.JobID)
	assert.Equal(t, res.BatchID, init.BatchID)
	require.Len(t, init.Ligands, 2)
	assert.Equal(t, proto.InitialLigand{Name: "lig-1", SMILES: "CCO", StdValue: 1.5}, init.Ligands[0])
	assert.Equal(t, proto.InitialLigand{Name: "lig-2", SMILES: "CCN", StdValue: 2.5}, init.Ligands[1])
}

func TestCoordinator_IngestBatchInitializeFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	st, ch, coord := newCoordinator(t)
	ch.FailTopic(proto.TopicModelInitializeRequest, errors.New("broker refused"))

	file := []byte("name,smiles,std_value\nlig-1,CCO,1.5\n")

	res, err := coord.IngestBatch(ctx, 1, "ligands.csv", "text/csv", file)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ligands)
	assert.Equal(t, 0, res.Failed())

	exps, err := st.ExperimentsByJob(ctx, 1)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, store.StatusDispatched, exps[0].Status)
}
