package ml

import (
	"testing"

	"github.com/cyberprophet/sentiment-analysis/data"
	"github.com/pkg/errors"
)

func TestBuildTrainingSet(t *testing.T) {
	featurizer, err := NewTextFeaturizer(DefaultFeaturizerOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records := []data.Record{
		data.NewRecord("Loved it.", true),
		data.NewRecord("Hated it.", false),
	}
	features, labels, err := BuildTrainingSet(featurizer, records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(features) != 2 || len(labels) != 2 {
		t.Fatalf("expected 2 rows, got %d features and %d labels", len(features), len(labels))
	}
	if !labels[0] || labels[1] {
		t.Fatalf("unexpected labels %v", labels)
	}
	if features[0].Dim != featurizer.Dim() {
		t.Fatalf("expected dim %d, got %d", featurizer.Dim(), features[0].Dim)
	}

	positive, negative := CountLabels(labels)
	if positive != 1 || negative != 1 {
		t.Fatalf("expected 1/1, got %d/%d", positive, negative)
	}
}

func TestBuildTrainingSetErrors(t *testing.T) {
	featurizer, err := NewTextFeaturizer(DefaultFeaturizerOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := [][]data.Record{
		nil,
		{data.NewRecord("fine", true), data.Unlabeled("missing")},
	}
	for _, records := range tests {
		if _, _, err := BuildTrainingSet(featurizer, records); !errors.Is(err, data.ErrConfiguration) {
			t.Fatalf("expected configuration error, got %v", err)
		}
	}
}
