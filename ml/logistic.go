package ml

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const KindLogisticRegression = "logistic_regression"

// LogisticRegressionTrainer fits an L2 regularized logistic regression with LBFGS.
type LogisticRegressionTrainer struct {
	L2            float64
	MaxIterations int
	Tolerance     float64
}

func NewLogisticRegressionTrainer(l2 float64, maxIterations int, tolerance float64) *LogisticRegressionTrainer {
	if l2 < 0 {
		l2 = 0
	}
	if maxIterations <= 0 {
		maxIterations = 100
	}
	if tolerance <= 0 {
		tolerance = 1e-5
	}
	return &LogisticRegressionTrainer{L2: l2, MaxIterations: maxIterations, Tolerance: tolerance}
}

func (t *LogisticRegressionTrainer) Kind() string {
	return KindLogisticRegression
}

func (t *LogisticRegressionTrainer) Train(ctx context.Context, features []SparseVector, labels []bool) (Classifier, error) {
	if len(features) == 0 || len(labels) == 0 {
		return nil, modelError("features or labels empty")
	}
	if len(features) != len(labels) {
		return nil, modelError("features and labels size mismatch")
	}
	dim := features[0].Dim
	n := float64(len(features))
	l2 := t.L2

	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			weights, bias := w[:dim], w[dim]
			loss := 0.0
			for i, x := range features {
				loss += logisticLoss(x.Dot(weights)+bias, labels[i])
			}
			return loss/n + 0.5*l2*floats.Dot(weights, weights)
		},
		Grad: func(grad, w []float64) {
			weights, bias := w[:dim], w[dim]
			for i := range grad {
				grad[i] = 0
			}
			for i, x := range features {
				residual := sigmoid(x.Dot(weights)+bias) - target(labels[i])
				x.AddScaledTo(grad[:dim], residual)
				grad[dim] += residual
			}
			floats.Scale(1/n, grad)
			floats.AddScaled(grad[:dim], l2, weights)
		},
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: t.Tolerance,
		MajorIterations:   t.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 20,
		},
	}

	result, err := optimize.Minimize(problem, make([]float64, dim+1), settings, &optimize.LBFGS{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Wrap(ctxErr, "logistic regression training cancelled")
	}
	// LBFGS may stop with a line search error once it can no longer improve;
	// the best location found is still usable as long as it is finite.
	if result == nil || math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return nil, modelError("logistic regression did not converge: %v", err)
	}
	for _, w := range result.X {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, modelError("logistic regression produced non-finite weights")
		}
	}

	weights := append([]float64(nil), result.X[:dim]...)
	return &LogisticRegression{
		Weights:    weights,
		Bias:       result.X[dim],
		Iterations: result.MajorIterations,
		Loss:       result.F,
	}, nil
}

// LogisticRegression is a trained linear model over hashed features.
type LogisticRegression struct {
	Weights    []float64 `json:"weights"`
	Bias       float64   `json:"bias"`
	Iterations int       `json:"iterations"`
	Loss       float64   `json:"loss"`
}

func (m *LogisticRegression) Kind() string {
	return KindLogisticRegression
}

func (m *LogisticRegression) Predict(features SparseVector) (float64, float64) {
	score := m.Bias
	for i, idx := range features.Indices {
		if idx < len(m.Weights) {
			score += features.Values[i] * m.Weights[idx]
		}
	}
	return score, sigmoid(score)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// logisticLoss is -log P(label | z) computed without overflow.
func logisticLoss(z float64, label bool) float64 {
	softplus := math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
	if label {
		return softplus - z
	}
	return softplus
}

func target(label bool) float64 {
	if label {
		return 1
	}
	return 0
}
