package ml

import (
	"context"
	"time"

	"github.com/cyberprophet/sentiment-analysis/data"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Builder composes the text featurizer with a trainer. Fit runs the
// featurizer first and hands its vectors to the trainer.
type Builder struct {
	featurizer *TextFeaturizer
	trainer    Trainer
	threshold  float64
	logger     *zap.Logger
}

func NewBuilder(featurizer *TextFeaturizer, trainer Trainer, threshold float64, logger *zap.Logger) (*Builder, error) {
	if featurizer == nil || trainer == nil {
		return nil, errors.New("featurizer and trainer are required")
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, errors.Wrapf(data.ErrConfiguration, "decision threshold must be in (0,1), got %v", threshold)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		featurizer: featurizer,
		trainer:    trainer,
		threshold:  threshold,
		logger:     logger,
	}, nil
}

// Fit trains a new immutable Model on the given records.
func (b *Builder) Fit(ctx context.Context, records []data.Record) (*Model, error) {
	start := time.Now()
	features, labels, err := BuildTrainingSet(b.featurizer, records)
	if err != nil {
		return nil, err
	}
	positive, negative := CountLabels(labels)
	if positive == 0 || negative == 0 {
		return nil, modelError("training set needs both classes (positive=%d negative=%d)", positive, negative)
	}
	b.logger.Info("Featurized training set",
		zap.String("input_column", InputColumn),
		zap.String("feature_column", FeatureColumn),
		zap.Int("rows", len(features)),
		zap.Int("dim", b.featurizer.Dim()),
		zap.Int("positive", positive),
		zap.Int("negative", negative))

	classifier, err := b.trainer.Train(ctx, features, labels)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrModel) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrModel, "train %s: %v", b.trainer.Kind(), err)
	}

	b.logger.Info("Model trained",
		zap.String("trainer", b.trainer.Kind()),
		zap.String("label_column", LabelColumn),
		zap.Duration("elapsed", time.Since(start)))

	return &Model{
		featurizer: b.featurizer,
		classifier: classifier,
		threshold:  b.threshold,
		trainedAt:  time.Now().UTC(),
	}, nil
}

// Model is a trained featurizer+classifier pair. It is never modified after Fit.
type Model struct {
	featurizer *TextFeaturizer
	classifier Classifier
	threshold  float64
	trainedAt  time.Time
}

func (m *Model) Threshold() float64 {
	return m.threshold
}

func (m *Model) Kind() string {
	return m.classifier.Kind()
}

func (m *Model) TrainedAt() time.Time {
	return m.trainedAt
}

func (m *Model) Featurizer() *TextFeaturizer {
	return m.featurizer
}

// PredictOne scores a single record. The record label is ignored.
func (m *Model) PredictOne(record data.Record) Prediction {
	score, probability := m.classifier.Predict(m.featurizer.Featurize(record.Text))
	return Prediction{
		Text:           record.Text,
		PredictedLabel: probability >= m.threshold,
		Probability:    probability,
		Score:          score,
	}
}

// Transform scores records sequentially, keeping input order.
func (m *Model) Transform(ctx context.Context, records []data.Record) ([]Prediction, error) {
	predictions := make([]Prediction, len(records))
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		predictions[i] = m.PredictOne(record)
	}
	return predictions, nil
}
