// Command vwlab 训练和查询基于 Vowpal Wabbit 的文本模型
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vwlab/config"
	"vwlab/logging"
	"vwlab/ml"
	_ "vwlab/vw"
)

// CLI 命令共享的状态
type CLI struct {
	configPath  string
	logLevel    string
	learnerKind string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCommand(&CLI{}).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand 创建根命令
func newRootCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vwlab",
		Short: "Text features for Vowpal Wabbit",
		Long: `vwlab 把作者/正文/年份文档转换成带命名空间的特征, 交给 vw 训练和预测。

示例:
  vwlab demo                                   # 在内置数据集上训练并预测
  vwlab train --dataset data/dataset.yaml      # 训练并记录训练日志
  vwlab predict --author Shanno --text "..." --year 2019
  vwlab features "the cat sat on the mat"`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cli.configPath, "config", "", "config file (default: ./config.yaml or ../config.yaml)")
	cmd.PersistentFlags().StringVar(&cli.logLevel, "log-level", "", "override log level")
	cmd.PersistentFlags().StringVar(&cli.learnerKind, "learner", "vw", "learner kind")
	_ = cmd.PersistentFlags().MarkHidden("learner")

	cmd.AddCommand(newDemoCommand(cli))
	cmd.AddCommand(newTrainCommand(cli))
	cmd.AddCommand(newPredictCommand(cli))
	cmd.AddCommand(newFeaturesCommand(cli))
	return cmd
}

// initialize 加载配置并创建日志
func (c *CLI) initialize() error {
	if c.cfg != nil {
		return nil
	}
	path := c.configPath
	if path == "" {
		path = config.Locate()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

// close 刷新日志
func (c *CLI) close() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// preprocessing 按配置创建预处理器和使用它的文档 schema
func (c *CLI) preprocessing() (*ml.Preprocessor, *ml.Schema[ml.Document], error) {
	pre, err := c.cfg.Preprocessor()
	if err != nil {
		return nil, nil, err
	}
	schema, err := c.cfg.DocumentSchema(pre)
	if err != nil {
		return nil, nil, err
	}
	return pre, schema, nil
}
