package dispatch_test

import (
	"context"
	"testing"

	"github.com/aigendrug/cid-dispatch/channel/channeltest"
	"github.com/aigendrug/cid-dispatch/dispatch"
	"github.com/aigendrug/cid-dispatch/dispatch/proto"
	"github.com/aigendrug/cid-dispatch/store"
	"github.com/hamba/testutils/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_ReconcileInferenceResponse(t *testing.T) {
	ctx := context.Background()
	st, ch, coord := newCoordinator(t)
	stop := startReconciler(t, coord, ch)
	defer stop()

	exp, out := coord.CreateExperiment(ctx, dispatch.CreateRequest{
		JobID:        1,
		Type:         store.TypeInfer,
		Name:         "lig-1",
		LigandSMILES: "CCO",
	})
	require.True(t, out.Success)

	payload, err := proto.Encode(proto.InferenceResponse{ExperimentID: exp.ID, PredictedValue: 0.42})
	require.NoError(t, err)
	ch.Deliver(ctx, proto.TopicModelInferenceResponse, payload)

	got, err := st.Experiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	require.NotNil(t, got.PredictedValue)
	assert.Equal(t, 0.42, *got.PredictedValue)
}

func TestCoordinator_ReconcileTrainResponse(t *testing.T) {
	ctx := context.Background()
	st, ch, coord := newCoordinator(t)
	stop := startReconciler(t, coord, ch)
	defer stop()

	exp, out := coord.CreateExperiment(ctx, dispatch.CreateRequest{
		JobID:         1,
		Type:          store.TypeTrain,
		Name:          "lig-1",
		LigandSMILES:  "CCO",
		MeasuredValue: 1.5,
	})
	require.True(t, out.Success)

	payload, err := proto.Encode(proto.TrainResponse{ExperimentID: exp.ID})
	require.NoError(t, err)
	ch.Deliver(ctx, proto.TopicModelTrainResponse, payload)

	got, err := st.Experiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Nil(t, got.PredictedValue)
}

func TestCoordinator_ReconcileRedelivery(t *testing.T) {
	ctx := context.Background()
	st, ch, coord := newCoordinator(t)
	stop := startReconciler(t, coord, ch)
	defer stop()

	exp, out := coord.CreateExperiment(ctx, dispatch.CreateRequest{
		JobID:        1,
		Type:         store.TypeInfer,
		Name:         "lig-1",
		LigandSMILES: "CCO",
	})
	require.True(t, out.Success)

	payload, err := proto.Encode(proto.InferenceResponse{ExperimentID: exp.ID, PredictedValue: 0.42})
	require.NoError(t, err)

	ch.Deliver(ctx, proto.TopicModelInferenceResponse, payload)
	ch.Deliver(ctx, proto.TopicModelInferenceResponse, payload)
	ch.Deliver(ctx, proto.TopicModelInferenceResponse, payload)

	got, err := st.Experiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, 0.42, *got.PredictedValue)
}

func TestCoordinator_ReconcileUnknownExperiment(t *testing.T) {
	ctx := context.Background()
	st, ch, coord := newCoordinator(t)
	stop := startReconciler(t, coord, ch)
	defer stop()

	// A response for an id that was never created must be a no-op,
	// not a loop-fatal error.
	payload, err := proto.Encode(proto.InferenceResponse{ExperimentID: 999, PredictedValue: 0.42})
	require.NoError(t, err)
	ch.Deliver(ctx, proto.TopicModelInferenceResponse, payload)

	exps, err := st.Experiments(ctx)
	require.NoError(t, err)
	assert.Len(t, exps, 0)
}

func TestCoordinator_ReconcileSurvivesBadMessage(t *testing.T) {
	ctx := context.Background()
	st, ch, coord := newCoordinator(t)
	stop := startReconciler(t, coord, ch)
	defer stop()

	exp, out := coord.CreateExperiment(ctx, dispatch.CreateRequest{
		JobID:        1,
		Type:         store.TypeInfer,
		Name:         "lig-1",
		LigandSMILES: "CCO",
	})
	require.True(t, out.Success)

	ch.Deliver(ctx, proto.TopicModelInferenceResponse, []byte("{not json"))

	payload, err := proto.Encode(proto.InferenceResponse{ExperimentID: exp.ID, PredictedValue: 0.42})
	require.NoError(t, err)
	ch.Deliver(ctx, proto.TopicModelInferenceResponse, payload)

	got, err := st.Experiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
}

func startReconciler(t *testing.T, coord *dispatch.Coordinator, ch *channeltest.Channel) func() {
	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		if err := coord.Run(ctx); err != nil {
			t.Errorf("reconciler err: %v", err)
		}
	}()

	retry.Run(t, func(t *retry.SubT) {
		if !ch.Subscribed() {
			t.Fatal("reconciler not subscribed")
		}
	})

	return func() {
		cancel()
		<-doneCh
	}
}
