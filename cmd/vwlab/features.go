package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"vwlab/ml"
)

// newFeaturesCommand 创建特征命令: 打印分词结果和词频, 不需要 vw
func newFeaturesCommand(cli *CLI) *cobra.Command {
	var weighting string
	cmd := &cobra.Command{
		Use:   "features <text>...",
		Short: "Print the tokens and term frequencies of a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(); err != nil {
				return err
			}
			defer cli.close()

			if weighting == "" {
				weighting = cli.cfg.Features.Weighting
			}
			w, err := ml.ParseWeighting(weighting)
			if err != nil {
				return err
			}
			pre, err := cli.cfg.Preprocessor()
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			tokens := pre.Tokenize(text)
			frequencies := pre.Extract(text)

			out := cmd.OutOrStdout()
			names := lo.Map(tokens, func(token ml.Token, _ int) string { return string(token) })
			fmt.Fprintf(out, "tokens (%d): %s\n", len(tokens), strings.Join(names, " "))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TERM\tCOUNT\tVALUE")
			for _, feature := range frequencies.Features(w) {
				fmt.Fprintf(tw, "%s\t%d\t%g\n", feature.Name, frequencies[feature.Name], feature.Value)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&weighting, "weighting", "", "raw or log (default: features.weighting)")
	return cmd
}
