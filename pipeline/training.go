package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"vwlab/db"
	"vwlab/logging"
	"vwlab/ml"
)

// TrainingOptions 训练配置
type TrainingOptions struct {
	LearnerKind string
	Learner     ml.LearnerOptions
	Epochs      int
	Precision   int
	// Record 为 true 时把清洗后的文档和词频存入数据库, 训练结果写入 training_log
	Record bool
	// Cleaner 为空时使用默认规则
	Cleaner *DocumentCleaner
	// Preprocessor 计算入库词频, 应与 schema 使用同一个
	Preprocessor *ml.Preprocessor
	Workers      int
	Logger       *zap.Logger
}

// TrainingResult 训练结果
type TrainingResult struct {
	Report     ml.TrainingReport `json:"report"`
	Evaluation ml.Evaluation     `json:"evaluation"`
	Probes     []ProbeResult     `json:"probes"`
	Issues     []QualityIssue    `json:"issues,omitempty"`
}

// ProbeResult 待预测文档的预测值
type ProbeResult struct {
	ID         string  `json:"id"`
	Prediction float64 `json:"prediction"`
}

// Train 清洗数据集, 按需入库, 打开学习器按 epoch 训练通过清洗的文档,
// 评估训练集并预测 probes, 最后关闭学习器保存模型
func Train(ctx context.Context, opts TrainingOptions, schema *ml.Schema[ml.Document], dataset *Dataset) (result *TrainingResult, err error) {
	if dataset == nil {
		return nil, fmt.Errorf("%w: dataset is required", ml.ErrInvalidInput)
	}
	logger := logging.OrNop(opts.Logger)
	cleaner := opts.Cleaner
	if cleaner == nil {
		cleaner = NewDocumentCleaner(logger)
	}
	dataset.AssignIDs()
	cleaned, issues := dataset.Clean(cleaner)
	for _, issue := range issues {
		logger.Warn("document rejected",
			zap.String("document", issue.DocumentID),
			zap.String("rule", issue.Rule),
			zap.String("message", issue.Message))
	}
	if len(cleaned.Documents) == 0 {
		return nil, fmt.Errorf("%w: no document passed cleaning (%d issues)", ml.ErrInvalidInput, len(issues))
	}
	docs, labels, err := cleaned.Training()
	if err != nil {
		return nil, err
	}

	if opts.Record {
		// Records are already clean; the ingester's own pass keeps them unchanged.
		ingester := NewIngester(nil, opts.Preprocessor, SQLiteStorage(), opts.Workers, logger)
		if _, err := ingester.Ingest(ctx, slices.Concat(cleaned.Documents, cleaned.Probes)); err != nil {
			return nil, fmt.Errorf("ingest dataset: %w", err)
		}
	}
	kind := opts.LearnerKind
	if kind == "" {
		kind = "vw"
	}
	if opts.Learner.Logger == nil {
		opts.Learner.Logger = logger
	}

	learner, err := ml.OpenLearner(ctx, kind, opts.Learner)
	if err != nil {
		return nil, err
	}
	// The model is only complete once the learner is closed.
	defer func() {
		if closeErr := learner.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close learner: %w", closeErr))
			result = nil
		}
		if err == nil && opts.Record {
			err = recordTraining(opts.Learner.ModelPath, result)
			if err != nil {
				result = nil
			}
		}
	}()

	trainer, err := ml.NewTrainer(learner, schema, opts.Epochs, logger)
	if err != nil {
		return nil, err
	}
	report, err := trainer.Train(ctx, docs, labels)
	if err != nil {
		return nil, err
	}
	evaluation, err := trainer.Evaluate(ctx, docs, labels, opts.Precision)
	if err != nil {
		return nil, err
	}

	probes := make([]ProbeResult, 0, len(cleaned.Probes))
	for _, doc := range cleaned.ProbeDocuments() {
		prediction, err := trainer.Predict(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", doc.ID, err)
		}
		probes = append(probes, ProbeResult{ID: doc.ID, Prediction: prediction})
	}

	logger.Info("training evaluated",
		zap.String("run_id", report.RunID),
		zap.Float64("accuracy", evaluation.Accuracy()))
	return &TrainingResult{Report: report, Evaluation: evaluation, Probes: probes, Issues: issues}, nil
}

func recordTraining(modelPath string, result *TrainingResult) error {
	return db.SaveTrainingLog(db.TrainingLog{
		RunID:     result.Report.RunID,
		ModelPath: modelPath,
		Epochs:    result.Report.Epochs,
		Examples:  result.Report.Examples,
		Accuracy:  result.Evaluation.Accuracy(),
		Duration:  result.Report.Duration,
		TrainedAt: result.Report.StartedAt,
	})
}
