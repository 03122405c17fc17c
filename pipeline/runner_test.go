package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyberprophet/sentiment-analysis/config"
	"github.com/cyberprophet/sentiment-analysis/data"
	"github.com/cyberprophet/sentiment-analysis/db"
	"github.com/cyberprophet/sentiment-analysis/ml"
	"github.com/pkg/errors"
)

type memoryStore struct {
	logs        []db.TrainingLog
	predictions map[int64][]db.PredictionRow
}

func (s *memoryStore) SaveTrainingLog(entry db.TrainingLog) (int64, error) {
	s.logs = append(s.logs, entry)
	return int64(len(s.logs)), nil
}

func (s *memoryStore) SavePredictions(runID int64, rows []db.PredictionRow) error {
	if s.predictions == nil {
		s.predictions = make(map[int64][]db.PredictionRow)
	}
	s.predictions[runID] = append(s.predictions[runID], rows...)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Path = filepath.Join("..", "datasets", "sample_labelled.txt")
	seed := int64(42)
	cfg.Split.Seed = &seed
	cfg.Split.TestFraction = 0.25
	cfg.Model.Path = filepath.Join(t.TempDir(), "model.json")
	return cfg
}

func TestRunnerRun(t *testing.T) {
	cfg := testConfig(t)
	store := &memoryStore{}
	runner, err := NewRunner(cfg, nil, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Summary.Total != 80 || result.Train+result.Test != 80 || result.Test != 20 {
		t.Fatalf("unexpected sizes: summary=%+v train=%d test=%d", result.Summary, result.Train, result.Test)
	}
	if result.Seed != 42 {
		t.Fatalf("expected seed 42, got %d", result.Seed)
	}
	for name, v := range map[string]float64{"accuracy": result.Metrics.Accuracy, "auc": result.Metrics.AUC, "f1": result.Metrics.F1Score} {
		if v < 0 || v > 1 {
			t.Fatalf("%s out of range: %v", name, v)
		}
	}
	if result.Single.Text != "This was a very bad steak." {
		t.Fatalf("unexpected single prediction %+v", result.Single)
	}
	if len(result.Batch) != 2 || result.Batch[0].Text != "This was a horrible meal." || result.Batch[1].Text != "I love this spaghetti." {
		t.Fatalf("unexpected batch predictions %+v", result.Batch)
	}
	if !result.Batch[1].PredictedLabel {
		t.Fatalf("expected positive prediction for %q, got %+v", result.Batch[1].Text, result.Batch[1])
	}

	if _, err := os.Stat(cfg.Model.Path); err != nil {
		t.Fatalf("expected model file: %v", err)
	}
	if len(store.logs) != 1 || store.logs[0].ModelName != ml.KindLogisticRegression || store.logs[0].TestPoints != 20 {
		t.Fatalf("unexpected stored logs %+v", store.logs)
	}
	if rows := store.predictions[result.RunID]; len(rows) != 3 {
		t.Fatalf("expected 3 stored predictions, got %d", len(rows))
	}
}

func TestRunnerIsReproducibleWithSeed(t *testing.T) {
	cfg := testConfig(t)
	runner, err := NewRunner(cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Metrics.Accuracy != second.Metrics.Accuracy || first.Single.Probability != second.Single.Probability {
		t.Fatalf("expected identical runs, got %+v and %+v", first.Metrics, second.Metrics)
	}
}

func TestRunnerStopsOnMalformedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.txt")
	content := strings.Join([]string{"Good food.\t1", "Bad food.\tmaybe", "Fine.\t0"}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := testConfig(t)
	cfg.Data.Path = path
	store := &memoryStore{}

	runner, err := NewRunner(cfg, nil, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = runner.Run(context.Background())
	var formatErr *data.DataFormatError
	if !errors.As(err, &formatErr) || formatErr.Line != 2 {
		t.Fatalf("expected format error on line 2, got %v", err)
	}
	if len(store.logs) != 0 {
		t.Fatal("expected nothing to be persisted")
	}
}

func TestRunnerMissingDataset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Path = filepath.Join(t.TempDir(), "missing.txt")
	runner, err := NewRunner(cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := runner.Run(context.Background()); !errors.Is(err, data.ErrResource) {
		t.Fatalf("expected resource error, got %v", err)
	}
}

func TestNewRunnerValidatesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Split.TestFraction = 0
	if _, err := NewRunner(cfg, nil, nil); !errors.Is(err, data.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunnerWithShippedConfig(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "config.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seed := int64(7)
	cfg.Split.Seed = &seed
	// models/ is not checked in, so the run must create it.
	cfg.Model.Path = filepath.Join(t.TempDir(), "models", "sentiment.json")

	runner, err := NewRunner(cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(cfg.Model.Path); err != nil {
		t.Fatalf("expected model file: %v", err)
	}

	var out bytes.Buffer
	if err := Report(&out, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Accuracy:", "Sentiment: This was a very bad steak.", "Sentiment: I love this spaghetti."} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("report is missing %q:\n%s", want, out.String())
		}
	}
}

func TestLoadCleaned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messy.txt")
	content := strings.Join([]string{"Great   food.|1", "   |0", "Awful\t service.|0", "Great food.|1"}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := data.DefaultLoadOptions()
	opts.Delimiter = "|"

	records, summary, stats, err := LoadCleaned(path, opts, true, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 4 {
		t.Fatalf("expected summary of the raw file, got %+v", summary)
	}
	if texts := data.Texts(records); len(texts) != 2 || texts[0] != "Great food." || texts[1] != "Awful service." {
		t.Fatalf("unexpected cleaned texts %q", texts)
	}
	if stats.Rejected != 2 || stats.Issues["empty_text"] != 1 || stats.Issues["duplicate_detection"] != 1 {
		t.Fatalf("unexpected cleaning stats %+v", stats)
	}
}
