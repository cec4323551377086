package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vwlab/db"
	"vwlab/pipeline"
)

// newTrainCommand 创建训练命令
func newTrainCommand(cli *CLI) *cobra.Command {
	var (
		datasetPath string
		modelPath   string
		epochs      int
		noRecord    bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model on a YAML or JSON dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(); err != nil {
				return err
			}
			defer cli.close()

			if datasetPath == "" {
				datasetPath = cli.cfg.Training.Dataset
			}
			dataset := pipeline.DefaultDataset()
			if datasetPath != "" {
				loaded, err := pipeline.LoadDataset(datasetPath)
				if err != nil {
					return err
				}
				dataset = loaded
			}

			if !noRecord {
				if err := db.InitDB(cli.cfg.Database.Path); err != nil {
					return fmt.Errorf("init database: %w", err)
				}
				defer db.Close()
			}

			pre, schema, err := cli.preprocessing()
			if err != nil {
				return err
			}
			opts := cli.cfg.LearnerOptions()
			if modelPath != "" {
				opts.ModelPath = modelPath
			}
			if epochs <= 0 {
				epochs = cli.cfg.Training.Epochs
			}

			cli.logger.Info("training",
				zap.String("dataset", datasetPath),
				zap.String("model", opts.ModelPath),
				zap.Int("documents", len(dataset.Documents)),
				zap.Int("epochs", epochs))
			result, err := pipeline.Train(cmd.Context(), pipeline.TrainingOptions{
				LearnerKind:  cli.learnerKind,
				Learner:      opts,
				Epochs:       epochs,
				Precision:    cli.cfg.Training.Precision,
				Record:       !noRecord,
				Preprocessor: pre,
				Workers:      cli.cfg.Training.Workers,
				Logger:       cli.logger,
			}, schema, dataset)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, issue := range result.Issues {
				fmt.Fprintf(out, "rejected %s: %s: %s\n", issue.DocumentID, issue.Rule, issue.Message)
			}
			fmt.Fprintf(out, "run %s: %d examples x %d epochs in %s\n",
				result.Report.RunID, result.Report.Examples, result.Report.Epochs, result.Report.Duration)
			fmt.Fprintf(out, "training accuracy=%.2f (%d/%d)\n",
				result.Evaluation.Accuracy(), result.Evaluation.Correct, result.Evaluation.Total)
			for _, probe := range result.Probes {
				fmt.Fprintf(out, "probe %s: %.4f\n", probe.ID, probe.Prediction)
			}
			fmt.Fprintf(out, "model saved to %s\n", opts.ModelPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset file (default: training.dataset, else the built-in dataset)")
	cmd.Flags().StringVar(&modelPath, "model", "", "model output path (default: vw.model_path)")
	cmd.Flags().IntVar(&epochs, "epochs", 0, "training passes (default: training.epochs)")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "do not write the run to the training log")
	return cmd
}
