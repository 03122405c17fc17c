package ml

import (
	"context"
	"runtime"

	"github.com/cyberprophet/sentiment-analysis/data"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PredictionEngine serves predictions from a trained Model. Results are
// cached by text; the model itself is only read.
type PredictionEngine struct {
	model   *Model
	cache   *lru.Cache[string, Prediction]
	workers int
	logger  *zap.Logger
}

// NewPredictionEngine creates an engine. cacheSize <= 0 disables caching and
// workers <= 0 uses one worker per CPU.
func NewPredictionEngine(model *Model, cacheSize, workers int, logger *zap.Logger) (*PredictionEngine, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := &PredictionEngine{
		model:   model,
		workers: workers,
		logger:  logger,
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, Prediction](cacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "create prediction cache")
		}
		engine.cache = cache
	}
	return engine, nil
}

func (e *PredictionEngine) PredictOne(record data.Record) Prediction {
	if e.cache != nil {
		if cached, ok := e.cache.Get(record.Text); ok {
			return cached
		}
	}
	prediction := e.model.PredictOne(record)
	if e.cache != nil {
		e.cache.Add(record.Text, prediction)
	}
	return prediction
}

// PredictBatch scores records concurrently. predictions[i] always belongs to records[i].
func (e *PredictionEngine) PredictBatch(ctx context.Context, records []data.Record) ([]Prediction, error) {
	predictions := make([]Prediction, len(records))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range records {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			predictions[i] = e.PredictOne(records[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "batch prediction")
	}
	e.logger.Debug("Batch prediction finished", zap.Int("records", len(records)), zap.Int("workers", e.workers))
	return predictions, nil
}

func (e *PredictionEngine) CacheLen() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}
