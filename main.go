package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"vwlab/config"
	"vwlab/db"
	vhttp "vwlab/http"
	"vwlab/logging"
	"vwlab/ml"
	"vwlab/pipeline"
	_ "vwlab/vw"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Locate())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// 2. Initialize database
	if err := db.InitDB(cfg.Database.Path); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("path", cfg.Database.Path))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Prediction service
	service, registry, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	defer service.Close()

	if _, statErr := os.Stat(cfg.VW.ModelPath); statErr == nil {
		if err := service.Reload(ctx); err != nil {
			logger.Warn("initial model load failed", zap.String("model", cfg.VW.ModelPath), zap.Error(err))
		}
	} else {
		logger.Warn("no trained model yet; POST /api/train or run vwlab train", zap.String("model", cfg.VW.ModelPath))
	}

	if cfg.HTTP.WatchModel {
		watcher, err := vhttp.NewModelWatcher(cfg.VW.ModelPath, service.Reload, cfg.HTTP.WatchDebounce, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watch model: %w", err)
		}
		defer watcher.Stop()
	}

	// 4. Start HTTP server
	serverConfig := vhttp.DefaultServerConfig()
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.Timeout = cfg.HTTP.Timeout
	serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	server := vhttp.NewServer(serverConfig, service, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	if err := server.Stop(context.Background()); err != nil {
		return err
	}
	return <-errCh
}

func newService(cfg *config.Config, logger *zap.Logger) (*vhttp.Service, *prometheus.Registry, error) {
	pre, err := cfg.Preprocessor()
	if err != nil {
		return nil, nil, err
	}
	weighting, err := ml.ParseWeighting(cfg.Features.Weighting)
	if err != nil {
		return nil, nil, err
	}
	schema, err := ml.DocumentSchema(pre, weighting)
	if err != nil {
		return nil, nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := vhttp.NewMetrics("vwlab", registry)
	if err != nil {
		return nil, nil, err
	}

	learnerOptions := cfg.LearnerOptions()
	learnerOptions.Logger = logger
	service, err := vhttp.NewService(vhttp.ServiceConfig{
		Schema:       schema,
		Preprocessor: pre,
		Weighting:    weighting,
		Open: func(ctx context.Context) (ml.Learner, error) {
			opts := learnerOptions
			opts.InitialModel = opts.ModelPath
			opts.ModelPath = ""
			opts.TestOnly = true
			return ml.OpenLearner(ctx, "vw", opts)
		},
		ModelPath:         cfg.VW.ModelPath,
		Precision:         cfg.Training.Precision,
		RecordPredictions: true,
		Metrics:           metrics,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, err
	}
	service.EnableTraining(vhttp.TrainingConfig{Options: pipeline.TrainingOptions{
		LearnerKind:  "vw",
		Learner:      learnerOptions,
		Epochs:       cfg.Training.Epochs,
		Precision:    cfg.Training.Precision,
		Record:       true,
		Preprocessor: pre,
		Workers:      cfg.Training.Workers,
		Logger:       logger,
	}})
	return service, registry, nil
}
