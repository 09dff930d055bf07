// Package proto holds the wire payloads exchanged with the worker
// fleet over the message channel.
package proto

import "encoding/json"

// Outbound and inbound topics.
const (
	TopicModelTrainRequest      = "ModelTrainRequest"
	TopicModelInferenceRequest  = "ModelInferenceRequest"
	TopicModelInitializeRequest = "ModelInitializeRequest"
	TopicModelTrainResponse     = "ModelTrainResponse"
	TopicModelInferenceResponse = "ModelInferenceResponse"
)

// TrainRequest asks the fleet to train on a single ligand.
type TrainRequest struct {
	JobID        int64   `json:"job_id"`
	ExperimentID int64   `json:"experiment_id"`
	ProteinData  string  `json:"protein_data"`
	TargetValue  float64 `json:"target_value"`
}

// InferenceRequest asks the fleet for a prediction on a single ligand.
type InferenceRequest struct {
	JobID        int64  `json:"job_id"`
	ExperimentID int64  `json:"experiment_id"`
	ProteinData  string `json:"protein_data"`
}

// InitialLigand is one row of a job's baseline ligand set.
type InitialLigand struct {
	Name     string  `json:"name"`
	SMILES   string  `json:"smiles"`
	StdValue float64 `json:"std_value"`
}

// InitializeRequest announces a job's baseline ligand set to the fleet.
type InitializeRequest struct {
	JobID   int64           `json:"job_id"`
	BatchID string          `json:"batch_id"`
	Ligands []InitialLigand `json:"ligands"`
}

// TrainResponse acknowledges a completed training request.
type TrainResponse struct {
	ExperimentID int64 `json:"experiment_id"`
}

// InferenceResponse carries the prediction for an experiment.
type InferenceResponse struct {
	ExperimentID   int64   `json:"experiment_id"`
	PredictedValue float64 `json:"predicted_value"`
}

// Encode encodes a wire payload.
func Encode(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode decodes a wire payload.
func Decode(buf []byte, out interface{}) error {
	return json.Unmarshal(buf, out)
}
