package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vwlab/ml"
	"vwlab/pipeline"
)

// newDemoCommand 创建演示命令: 在内置数据集上训练, 然后预测第一篇文档和相似的新文档
func newDemoCommand(cli *CLI) *cobra.Command {
	var (
		modelPath string
		epochs    int
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Train on the built-in dataset and predict a similar document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(); err != nil {
				return err
			}
			defer cli.close()

			_, schema, err := cli.preprocessing()
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

			dataset := pipeline.DefaultDataset()
			result, err := pipeline.Train(cmd.Context(), pipeline.TrainingOptions{
				LearnerKind: cli.learnerKind,
				Learner:     opts,
				Epochs:      epochs,
				Precision:   cli.cfg.Training.Precision,
				Logger:      cli.logger,
			}, schema, dataset)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			precision := cli.cfg.Training.Precision
			first := dataset.Documents[0]
			firstPrediction := result.Evaluation.Predictions[0]
			fmt.Fprintf(out, "trained %d examples x %d epochs, model %s\n",
				result.Report.Examples, result.Report.Epochs, opts.ModelPath)
			fmt.Fprintf(out, "%s (label %g): prediction %.4f, rounds to %g\n",
				first.Author, *first.Label, firstPrediction, ml.Round(firstPrediction, precision))
			// Unseen documents are only expected to land in the right class.
			for i, probe := range result.Probes {
				rounded := ml.Round(probe.Prediction, 0)
				fmt.Fprintf(out, "%s (unseen): prediction %.4f, rounds to %g, same class as %s: %t\n",
					dataset.Probes[i].Author, probe.Prediction, rounded, first.Author, rounded == *first.Label)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model output path (default: vw.model_path)")
	cmd.Flags().IntVar(&epochs, "epochs", 0, "training passes (default: training.epochs)")
	return cmd
}
