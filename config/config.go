// Package config loads vwlab settings from YAML with VWLAB_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"vwlab/logging"
	"vwlab/ml"
)

// EnvPrefix prefixes every environment override, e.g. VWLAB_HTTP_PORT.
const EnvPrefix = "VWLAB"

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      logging.Config `yaml:"log"`
	VW       VWConfig       `yaml:"vw"`
	Features FeaturesConfig `yaml:"features"`
	Training TrainingConfig `yaml:"training"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	WatchModel     bool          `yaml:"watch_model"`
	WatchDebounce  time.Duration `yaml:"watch_debounce"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type VWConfig struct {
	Binary    string   `yaml:"binary"`
	ModelPath string   `yaml:"model_path"`
	Args      []string `yaml:"args"`
}

type FeaturesConfig struct {
	Weighting string `yaml:"weighting"`
	Stemming  bool   `yaml:"stemming"`
	CacheSize int    `yaml:"cache_size"`
}

type TrainingConfig struct {
	Dataset   string `yaml:"dataset"`
	Epochs    int    `yaml:"epochs"`
	Precision int    `yaml:"precision"`
	Workers   int    `yaml:"workers"`
}

// Default returns the settings used for keys missing from the file.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "vwlab.db"},
		HTTP: HTTPConfig{
			Port:           8080,
			Timeout:        30 * time.Second,
			WatchModel:     true,
			WatchDebounce:  500 * time.Millisecond,
			AllowedOrigins: []string{"*"},
		},
		Log: logging.Config{Level: "info", Format: "console"},
		VW: VWConfig{
			Binary:    "vw",
			ModelPath: "models/vwlab.model",
		},
		Features: FeaturesConfig{
			Weighting: string(ml.RawCount),
			CacheSize: 1024,
		},
		Training: TrainingConfig{
			Epochs:    ml.DefaultEpochs,
			Precision: 1,
			Workers:   4,
		},
	}
}

// Locate returns the first existing candidate config file. With no candidates it
// looks for config.yaml in the working directory and its parent, so binaries under
// cmd/ find the root file. It returns "" when nothing exists.
func Locate(candidates ...string) string {
	if len(candidates) == 0 {
		candidates = []string{"config.yaml", filepath.Join("..", "config.yaml")}
	}
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads path over the defaults, applies environment overrides and validates
// the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}
	if c.VW.Binary == "" {
		errs = append(errs, errors.New("vw.binary is required"))
	}
	if _, err := ml.ParseWeighting(c.Features.Weighting); err != nil {
		errs = append(errs, fmt.Errorf("features.weighting: %w", err))
	}
	if c.Features.CacheSize < 0 {
		errs = append(errs, errors.New("features.cache_size must not be negative"))
	}
	if c.Training.Epochs < 1 {
		errs = append(errs, errors.New("training.epochs must be at least 1"))
	}
	if c.Training.Precision < 0 {
		errs = append(errs, errors.New("training.precision must not be negative"))
	}
	if c.Training.Workers < 1 {
		errs = append(errs, errors.New("training.workers must be at least 1"))
	}
	return errors.Join(errs...)
}

// Preprocessor builds the tokenizer and feature cache described by the features section.
func (c *Config) Preprocessor() (*ml.Preprocessor, error) {
	var opts []ml.TokenizerOption
	if c.Features.Stemming {
		opts = append(opts, ml.WithStemming())
	}
	return ml.NewPreprocessor(ml.NewTokenizer(opts...), c.Features.CacheSize)
}

// DocumentSchema builds the document schema around pre, or around a new
// Preprocessor from the features section when pre is nil.
func (c *Config) DocumentSchema(pre *ml.Preprocessor) (*ml.Schema[ml.Document], error) {
	weighting, err := ml.ParseWeighting(c.Features.Weighting)
	if err != nil {
		return nil, err
	}
	if pre == nil {
		if pre, err = c.Preprocessor(); err != nil {
			return nil, err
		}
	}
	return ml.DocumentSchema(pre, weighting)
}

// LearnerOptions converts the vw section for ml.OpenLearner.
func (c *Config) LearnerOptions() ml.LearnerOptions {
	return ml.LearnerOptions{
		Binary:    c.VW.Binary,
		ModelPath: c.VW.ModelPath,
		Args:      c.VW.Args,
	}
}
