package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vwlab/ml"
)

// newPredictCommand 创建预测命令, 以只读方式加载已训练的模型
func newPredictCommand(cli *CLI) *cobra.Command {
	var (
		modelPath string
		doc       ml.Document
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the label of one document with a trained model",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := cli.initialize(); err != nil {
				return err
			}
			defer cli.close()

			if err := doc.Validate(); err != nil {
				return err
			}
			_, schema, err := cli.preprocessing()
			if err != nil {
				return err
			}

			opts := cli.cfg.LearnerOptions()
			if modelPath != "" {
				opts.ModelPath = modelPath
			}
			opts.InitialModel = opts.ModelPath
			opts.ModelPath = ""
			opts.TestOnly = true
			opts.Logger = cli.logger

			learner, err := ml.OpenLearner(cmd.Context(), cli.learnerKind, opts)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := learner.Close(); err == nil {
					err = closeErr
				}
			}()

			prediction, err := ml.PredictDocument(cmd.Context(), learner, schema, doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prediction %.4f, label %g\n",
				prediction, ml.Round(prediction, cli.cfg.Training.Precision))
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "trained model (default: vw.model_path)")
	cmd.Flags().StringVar(&doc.Author, "author", "", "document author")
	cmd.Flags().StringVar(&doc.Text, "text", "", "document text")
	cmd.Flags().IntVar(&doc.Year, "year", 0, "publication year")
	return cmd
}
