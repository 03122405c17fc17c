package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cyberprophet/sentiment-analysis/config"
	"github.com/cyberprophet/sentiment-analysis/db"
	"github.com/cyberprophet/sentiment-analysis/logging"
	"github.com/cyberprophet/sentiment-analysis/pipeline"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config")
	dataPath := flag.String("data", "", "dataset path, overrides data.path")
	seed := flag.Int64("seed", 0, "split seed, overrides split.seed when set")
	watch := flag.Bool("watch", false, "re-run whenever the dataset changes")
	flag.Parse()

	// 1. Load config
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Split.Seed = seed
		}
	})

	// 2. Logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *watch, logger); err != nil {
		logger.Error("Pipeline failed", logging.ErrorField(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, watch bool, logger *zap.Logger) error {
	// 3. Optional database
	var store pipeline.TrainingStore
	if cfg.Database.Path != "" {
		if err := db.InitDB(cfg.Database.Path); err != nil {
			return err
		}
		defer db.Close()
		logger.Info("Database initialized", zap.String("path", cfg.Database.Path))
		store = db.Store{}
	}

	runner, err := pipeline.NewRunner(cfg, logger, store)
	if err != nil {
		return err
	}

	// 4. Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job := func(ctx context.Context) error {
		result, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		return pipeline.Report(os.Stdout, result)
	}

	if !watch {
		return job(ctx)
	}
	if err := job(ctx); err != nil {
		logger.Error("Initial run failed", logging.ErrorField(err))
	}
	return pipeline.NewDatasetWatcher(cfg.Data.Path, 0, logger).Run(ctx, job)
}

// loadConfig reads path, falling back to the defaults when the default
// config file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "config.yaml" {
		return config.Default(), nil
	}
	return config.Load(path)
}
