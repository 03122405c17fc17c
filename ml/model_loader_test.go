package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyberprophet/sentiment-analysis/data"
)

func TestModelSaveLoadRoundTrip(t *testing.T) {
	trainers := []Trainer{
		NewLogisticRegressionTrainer(1e-3, 50, 1e-6),
		NewDecisionTreeTrainer(6, 1),
	}
	records := loadSample(t)
	samples := []data.Record{
		data.Unlabeled("I love this spaghetti."),
		data.Unlabeled("This was a very bad steak."),
		data.Unlabeled("unknown words only"),
	}

	for _, trainer := range trainers {
		t.Run(trainer.Kind(), func(t *testing.T) {
			model, err := newTestBuilder(t, trainer).Fit(context.Background(), records)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			path := filepath.Join(t.TempDir(), "model.json")
			if err := model.Save(path); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			loaded, err := LoadModel(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if loaded.Kind() != model.Kind() || loaded.Threshold() != model.Threshold() {
				t.Fatalf("expected %s@%v, got %s@%v", model.Kind(), model.Threshold(), loaded.Kind(), loaded.Threshold())
			}
			if !loaded.TrainedAt().Equal(model.TrainedAt()) {
				t.Fatalf("expected trained at %v, got %v", model.TrainedAt(), loaded.TrainedAt())
			}
			for _, sample := range samples {
				want := model.PredictOne(sample)
				got := loaded.PredictOne(sample)
				if want != got {
					t.Fatalf("prediction changed after reload: %+v vs %+v", want, got)
				}
			}
		})
	}
}

func TestModelSaveCreatesMissingDirectories(t *testing.T) {
	model, err := newTestBuilder(t, NewLogisticRegressionTrainer(1e-3, 20, 1e-6)).Fit(context.Background(), loadSample(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "models", "nested", "model.json")
	if err := model.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := LoadModel(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadModelRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"garbage.json":   "not json",
		"version.json":   `{"version": 2}`,
		"columns.json":   `{"version": 1, "input_column": "Text", "feature_column": "Features", "label_column": "Label", "threshold": 0.5}`,
		"threshold.json": `{"version": 1, "input_column": "SentimentText", "feature_column": "Features", "label_column": "Label", "threshold": 1.5}`,
		"type.json": `{"version": 1, "input_column": "SentimentText", "feature_column": "Features", "label_column": "Label",
			"threshold": 0.5, "featurizer": {"hash_bits": 16, "word_ngrams": 2, "char_ngrams": 3}, "model_type": "svm", "classifier": {}}`,
		"weights.json": `{"version": 1, "input_column": "SentimentText", "feature_column": "Features", "label_column": "Label",
			"threshold": 0.5, "featurizer": {"hash_bits": 16, "word_ngrams": 2, "char_ngrams": 3}, "model_type": "logistic_regression",
			"classifier": {"weights": [1, 2], "bias": 0}}`,
	}
	for name, body := range tests {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := LoadModel(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadModel(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNewTrainer(t *testing.T) {
	for _, kind := range []string{"", KindLogisticRegression, KindDecisionTree} {
		trainer, err := NewTrainer(kind, TrainerParams{})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", kind, err)
		}
		if kind != "" && trainer.Kind() != kind {
			t.Fatalf("expected %s trainer, got %s", kind, trainer.Kind())
		}
	}
	if _, err := NewTrainer("svm", TrainerParams{}); err == nil {
		t.Fatal("expected error for unsupported model type")
	}
}
