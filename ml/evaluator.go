package ml

import (
	"context"
	"math"

	"github.com/cyberprophet/sentiment-analysis/data"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

const probabilityEpsilon = 1e-15

type ConfusionMatrix struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
}

type Metrics struct {
	Accuracy          float64         `json:"accuracy"`
	AUC               float64         `json:"auc"`
	F1Score           float64         `json:"f1_score"`
	PositivePrecision float64         `json:"positive_precision"`
	PositiveRecall    float64         `json:"positive_recall"`
	NegativePrecision float64         `json:"negative_precision"`
	NegativeRecall    float64         `json:"negative_recall"`
	LogLoss           float64         `json:"log_loss"`
	Threshold         float64         `json:"threshold"`
	Count             int             `json:"count"`
	ConfusionMatrix   ConfusionMatrix `json:"confusion_matrix"`
}

// Evaluate scores the labelled test records with model and compares the
// predictions to the labels at the model's decision threshold.
func Evaluate(ctx context.Context, model *Model, test []data.Record) (Metrics, error) {
	if len(test) == 0 {
		return Metrics{}, errors.Wrap(data.ErrConfiguration, "test set is empty")
	}
	labels := make([]bool, len(test))
	for i, record := range test {
		label, ok := record.Labeled()
		if !ok {
			return Metrics{}, errors.Wrapf(data.ErrConfiguration, "test record %d has no label: %q", i, record.Text)
		}
		labels[i] = label
	}

	predictions, err := model.Transform(ctx, test)
	if err != nil {
		return Metrics{}, err
	}
	probabilities := make([]float64, len(predictions))
	for i, prediction := range predictions {
		probabilities[i] = prediction.Probability
	}
	return ComputeMetrics(probabilities, labels, model.Threshold())
}

// ComputeMetrics derives binary classification metrics from predicted
// probabilities. Both classes must be present.
func ComputeMetrics(probabilities []float64, labels []bool, threshold float64) (Metrics, error) {
	if len(probabilities) != len(labels) {
		return Metrics{}, errors.New("probabilities and labels size mismatch")
	}
	if len(labels) == 0 {
		return Metrics{}, errors.Wrap(data.ErrConfiguration, "no predictions to evaluate")
	}
	positive, negative := CountLabels(labels)
	if positive == 0 || negative == 0 {
		return Metrics{}, errors.Wrapf(data.ErrConfiguration, "degenerate test set (positive=%d negative=%d)", positive, negative)
	}

	var cm ConfusionMatrix
	logLoss := 0.0
	for i, p := range probabilities {
		predicted := p >= threshold
		switch {
		case predicted && labels[i]:
			cm.TruePositive++
		case predicted && !labels[i]:
			cm.FalsePositive++
		case !predicted && !labels[i]:
			cm.TrueNegative++
		default:
			cm.FalseNegative++
		}
		clipped := math.Min(math.Max(p, probabilityEpsilon), 1-probabilityEpsilon)
		if labels[i] {
			logLoss -= math.Log(clipped)
		} else {
			logLoss -= math.Log(1 - clipped)
		}
	}

	total := float64(len(labels))
	metrics := Metrics{
		Accuracy:          float64(cm.TruePositive+cm.TrueNegative) / total,
		AUC:               areaUnderROC(probabilities, labels),
		PositivePrecision: ratio(cm.TruePositive, cm.TruePositive+cm.FalsePositive),
		PositiveRecall:    ratio(cm.TruePositive, cm.TruePositive+cm.FalseNegative),
		NegativePrecision: ratio(cm.TrueNegative, cm.TrueNegative+cm.FalseNegative),
		NegativeRecall:    ratio(cm.TrueNegative, cm.TrueNegative+cm.FalsePositive),
		LogLoss:           logLoss / total,
		Threshold:         threshold,
		Count:             len(labels),
		ConfusionMatrix:   cm,
	}
	if sum := metrics.PositivePrecision + metrics.PositiveRecall; sum > 0 {
		metrics.F1Score = 2 * metrics.PositivePrecision * metrics.PositiveRecall / sum
	}
	return metrics, nil
}

func areaUnderROC(probabilities []float64, labels []bool) float64 {
	y := append([]float64(nil), probabilities...)
	classes := append([]bool(nil), labels...)
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
