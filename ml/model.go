package ml

import "context"

// Learner is an online learner that owns its model state and model file.
// Implementations are not required to be safe for concurrent use.
type Learner interface {
	Hasher
	// Learn updates the model with a labelled example.
	Learn(ctx context.Context, example Example) error
	// Predict returns the scalar prediction for an example built with the same schema
	// the model was trained on.
	Predict(ctx context.Context, example Example) (float64, error)
	// Close releases the learner and persists its model if one was configured.
	Close() error
}

// Predictor is the read-only half of a Learner.
type Predictor interface {
	Predict(ctx context.Context, example Example) (float64, error)
}
