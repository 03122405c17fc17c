package pipeline

import (
	"context"
	"time"

	"github.com/cyberprophet/sentiment-analysis/config"
	"github.com/cyberprophet/sentiment-analysis/data"
	"github.com/cyberprophet/sentiment-analysis/db"
	"github.com/cyberprophet/sentiment-analysis/ml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TrainingStore records finished runs. db.Store satisfies it.
type TrainingStore interface {
	SaveTrainingLog(entry db.TrainingLog) (int64, error)
	SavePredictions(runID int64, predictions []db.PredictionRow) error
}

// Result is everything one pipeline run produced.
type Result struct {
	Dataset   string
	Seed      int64
	Summary   data.Summary
	Cleaning  CleaningStats
	Train     int
	Test      int
	Metrics   ml.Metrics
	Single    ml.Prediction
	Batch     []ml.Prediction
	Model     *ml.Model
	RunID     int64
	StartedAt time.Time
	Duration  time.Duration
}

type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
	store  TrainingStore
}

// NewRunner creates a runner. store may be nil, in which case nothing is persisted.
func NewRunner(cfg *config.Config, logger *zap.Logger, store TrainingStore) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger, store: store}, nil
}

// Run loads, cleans and splits the dataset, trains and evaluates a model, then
// scores the configured samples. The first failing stage ends the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{Dataset: r.cfg.Data.Path, StartedAt: time.Now()}

	records, summary, cleaning, err := LoadCleaned(r.cfg.Data.Path, r.cfg.Data.LoadOptions, r.cfg.Data.DropDuplicates, r.logger)
	if err != nil {
		return nil, err
	}
	result.Summary, result.Cleaning = summary, cleaning

	result.Seed = r.seed()
	train, test, err := data.Split(records, r.cfg.Split.TestFraction, result.Seed)
	if err != nil {
		return nil, err
	}
	result.Train, result.Test = len(train), len(test)
	r.logger.Info("Dataset split",
		zap.Int64("seed", result.Seed),
		zap.Int("train", result.Train),
		zap.Int("test", result.Test))

	model, err := r.fit(ctx, train)
	if err != nil {
		return nil, err
	}
	result.Model = model

	result.Metrics, err = ml.Evaluate(ctx, model, test)
	if err != nil {
		return nil, errors.WithMessage(err, "evaluate model")
	}
	r.logger.Info("Model evaluated",
		zap.Float64("accuracy", result.Metrics.Accuracy),
		zap.Float64("auc", result.Metrics.AUC),
		zap.Float64("f1", result.Metrics.F1Score))

	if r.cfg.Model.Path != "" {
		if err := model.Save(r.cfg.Model.Path); err != nil {
			return nil, errors.Wrapf(data.ErrResource, "save model %s: %v", r.cfg.Model.Path, err)
		}
		r.logger.Info("Model saved", zap.String("path", r.cfg.Model.Path))
	}

	engine, err := ml.NewPredictionEngine(model, r.cfg.Prediction.CacheSize, r.cfg.Prediction.Workers, r.logger)
	if err != nil {
		return nil, err
	}
	result.Single = engine.PredictOne(data.Unlabeled(r.cfg.Prediction.Single))

	batch := make([]data.Record, len(r.cfg.Prediction.Batch))
	for i, text := range r.cfg.Prediction.Batch {
		batch[i] = data.Unlabeled(text)
	}
	result.Batch, err = engine.PredictBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	if r.store != nil {
		if err := r.persist(result); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(result.StartedAt)
	r.logger.Info("Pipeline finished", zap.Duration("duration", result.Duration))
	return result, nil
}

// LoadCleaned loads the dataset at path and runs it through a DataCleaner.
// The summary describes the records as loaded, before cleaning.
func LoadCleaned(path string, opts data.LoadOptions, dropDuplicates bool, logger *zap.Logger) ([]data.Record, data.Summary, CleaningStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	records, err := data.Load(path, opts)
	if err != nil {
		return nil, data.Summary{}, CleaningStats{}, err
	}
	summary := data.Stats(records)
	logger.Info("Dataset loaded",
		zap.String("path", path),
		zap.Int("records", summary.Total),
		zap.Int("positive", summary.Positive),
		zap.Int("negative", summary.Negative))

	cleaner := NewDataCleaner(dropDuplicates, logger)
	records, issues := cleaner.Clean(records)
	stats := cleaner.GetStats()
	if len(issues) > 0 {
		logger.Warn("Records rejected by cleaning",
			zap.Int("rejected", len(issues)),
			zap.Any("issues", stats.Issues))
	}
	return records, summary, stats, nil
}

func (r *Runner) seed() int64 {
	if r.cfg.Split.Seed != nil {
		return *r.cfg.Split.Seed
	}
	return time.Now().UnixNano()
}

func (r *Runner) fit(ctx context.Context, train []data.Record) (*ml.Model, error) {
	featurizer, err := ml.NewTextFeaturizer(r.cfg.Featurizer)
	if err != nil {
		return nil, errors.Wrapf(data.ErrConfiguration, "featurizer: %v", err)
	}
	trainer, err := ml.NewTrainer(r.cfg.Model.Type, r.cfg.Model.TrainerParams)
	if err != nil {
		return nil, errors.Wrapf(data.ErrConfiguration, "model: %v", err)
	}
	builder, err := ml.NewBuilder(featurizer, trainer, r.cfg.Evaluation.Threshold, r.logger)
	if err != nil {
		return nil, err
	}
	return builder.Fit(ctx, train)
}

func (r *Runner) persist(result *Result) error {
	runID, err := r.store.SaveTrainingLog(db.TrainingLog{
		ModelName:  result.Model.Kind(),
		Dataset:    result.Dataset,
		Seed:       result.Seed,
		Accuracy:   result.Metrics.Accuracy,
		AUC:        result.Metrics.AUC,
		F1Score:    result.Metrics.F1Score,
		Precision:  result.Metrics.PositivePrecision,
		Recall:     result.Metrics.PositiveRecall,
		LogLoss:    result.Metrics.LogLoss,
		TrainedAt:  result.Model.TrainedAt(),
		DataPoints: result.Train,
		TestPoints: result.Test,
	})
	if err != nil {
		return errors.Wrapf(data.ErrResource, "save training log: %v", err)
	}
	result.RunID = runID

	predictions := append([]ml.Prediction{result.Single}, result.Batch...)
	rows := make([]db.PredictionRow, len(predictions))
	for i, p := range predictions {
		rows[i] = db.PredictionRow{Text: p.Text, PredictedLabel: p.PredictedLabel, Probability: p.Probability}
	}
	if err := r.store.SavePredictions(runID, rows); err != nil {
		return errors.Wrapf(data.ErrResource, "save predictions: %v", err)
	}
	r.logger.Info("Run persisted", zap.Int64("run_id", runID), zap.Int("predictions", len(rows)))
	return nil
}
