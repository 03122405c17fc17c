package ml

import (
	"context"

	"github.com/pkg/errors"
)

// Column names used between the featurize and classify stages.
const (
	InputColumn   = "SentimentText"
	FeatureColumn = "Features"
	LabelColumn   = "Label"
)

const DefaultThreshold = 0.5

// ErrModel marks a failure inside a trainer or classifier.
var ErrModel = errors.New("model error")

// Featurizer turns raw text into a fixed length feature vector.
type Featurizer interface {
	Featurize(text string) SparseVector
	Dim() int
}

// Classifier scores a feature vector. score is the raw margin and
// probability the calibrated P(label == true).
type Classifier interface {
	Kind() string
	Predict(features SparseVector) (score, probability float64)
}

// Trainer fits a Classifier to labelled feature vectors.
type Trainer interface {
	Kind() string
	Train(ctx context.Context, features []SparseVector, labels []bool) (Classifier, error)
}

type Prediction struct {
	Text           string  `json:"text"`
	PredictedLabel bool    `json:"predicted_label"`
	Probability    float64 `json:"probability"`
	Score          float64 `json:"score"`
}

func modelError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrModel, format, args...)
}
