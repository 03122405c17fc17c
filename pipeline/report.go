package pipeline

import (
	"fmt"
	"io"

	"github.com/cyberprophet/sentiment-analysis/ml"
)

// Report writes the console summary of a run: evaluation metrics, the single
// sample prediction and the batch predictions.
func Report(w io.Writer, result *Result) error {
	ew := &errWriter{w: w}

	ew.printf("\n")
	ew.printf("Model quality metrics evaluation\n")
	ew.printf("--------------------------------\n")
	ew.printf("Accuracy: %s\n", percent(result.Metrics.Accuracy))
	ew.printf("Auc: %s\n", percent(result.Metrics.AUC))
	ew.printf("F1Score: %s\n", percent(result.Metrics.F1Score))
	ew.printf("=============== End of model evaluation ===============\n")

	ew.printf("\n")
	ew.printf("=============== Prediction Test of model with a single sample and test dataset ===============\n")
	ew.printf("\n")
	writePrediction(ew, result.Single)
	ew.printf("=============== End of Predictions ===============\n")
	ew.printf("\n")

	for _, p := range result.Batch {
		writePrediction(ew, p)
	}
	return ew.err
}

func writePrediction(ew *errWriter, p ml.Prediction) {
	ew.printf("Sentiment: %s\nPrediction: %s\nProbability: %g \n", p.Text, Sentiment(p.PredictedLabel), p.Probability)
}

// Sentiment names a predicted label.
func Sentiment(positive bool) string {
	if positive {
		return "Positive"
	}
	return "Negative"
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
