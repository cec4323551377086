package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultEpochs is the number of passes over the dataset when none is configured.
const DefaultEpochs = 100

// Trainer feeds documents to a learner through a schema.
type Trainer struct {
	learner Learner
	schema  *Schema[Document]
	epochs  int
	logger  *zap.Logger
}

// TrainingReport summarizes one Train call.
type TrainingReport struct {
	RunID     string        `json:"run_id"`
	Epochs    int           `json:"epochs"`
	Examples  int           `json:"examples"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Evaluation holds the predictions of Evaluate and how many matched their label.
type Evaluation struct {
	Predictions []float64 `json:"predictions"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
}

// Accuracy returns the share of correct predictions.
func (e Evaluation) Accuracy() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Total)
}

// NewTrainer creates a Trainer. Epochs below one fall back to DefaultEpochs.
func NewTrainer(learner Learner, schema *Schema[Document], epochs int, logger *zap.Logger) (*Trainer, error) {
	if learner == nil {
		return nil, errors.New("learner is required")
	}
	if schema == nil {
		return nil, errors.New("schema is required")
	}
	if epochs < 1 {
		epochs = DefaultEpochs
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{learner: learner, schema: schema, epochs: epochs, logger: logger}, nil
}

// Epochs returns the configured number of passes.
func (t *Trainer) Epochs() int {
	return t.epochs
}

// Train learns every document once per epoch, in dataset order.
func (t *Trainer) Train(ctx context.Context, docs []Document, labels []float64) (TrainingReport, error) {
	if err := ValidateDataset(docs, labels); err != nil {
		return TrainingReport{}, err
	}
	examples, err := BuildExamples(t.schema, docs, labels)
	if err != nil {
		return TrainingReport{}, err
	}

	report := TrainingReport{
		RunID:     uuid.New().String(),
		Epochs:    t.epochs,
		Examples:  len(examples),
		StartedAt: time.Now(),
	}
	logger := t.logger.With(zap.String("run_id", report.RunID))
	logger.Info("training started", zap.Int("epochs", t.epochs), zap.Int("examples", len(examples)))

	for epoch := 0; epoch < t.epochs; epoch++ {
		for i, example := range examples {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := t.learner.Learn(ctx, example); err != nil {
				return report, fmt.Errorf("epoch %d document %d: %w", epoch, i, err)
			}
		}
		logger.Debug("epoch finished", zap.Int("epoch", epoch))
	}

	report.Duration = time.Since(report.StartedAt)
	logger.Info("training finished", zap.Duration("duration", report.Duration))
	return report, nil
}

// Predict returns the learner's prediction for a single document.
func (t *Trainer) Predict(ctx context.Context, doc Document) (float64, error) {
	return PredictDocument(ctx, t.learner, t.schema, doc)
}

// Evaluate predicts every document and counts predictions that round, at the given
// number of decimals, to their label.
func (t *Trainer) Evaluate(ctx context.Context, docs []Document, labels []float64, precision int) (Evaluation, error) {
	if err := ValidateDataset(docs, labels); err != nil {
		return Evaluation{}, err
	}
	eval := Evaluation{
		Predictions: make([]float64, 0, len(docs)),
		Total:       len(docs),
	}
	for i, doc := range docs {
		prediction, err := t.Predict(ctx, doc)
		if err != nil {
			return eval, fmt.Errorf("document %d: %w", i, err)
		}
		eval.Predictions = append(eval.Predictions, prediction)
		if Round(prediction, precision) == labels[i] {
			eval.Correct++
		}
	}
	return eval, nil
}

// PredictDocument validates doc, assembles an unlabelled example and asks p for a prediction.
func PredictDocument(ctx context.Context, p Predictor, schema *Schema[Document], doc Document) (float64, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}
	example, err := schema.Assemble(doc, nil)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.Predict(ctx, example)
}
