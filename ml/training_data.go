package ml

import (
	"github.com/cyberprophet/sentiment-analysis/data"
	"github.com/pkg/errors"
)

// BuildTrainingSet featurizes labelled records. Every record must carry a label.
func BuildTrainingSet(featurizer Featurizer, records []data.Record) (features []SparseVector, labels []bool, err error) {
	if len(records) == 0 {
		return nil, nil, errors.Wrap(data.ErrConfiguration, "training set is empty")
	}

	features = make([]SparseVector, 0, len(records))
	labels = make([]bool, 0, len(records))
	for i, record := range records {
		label, ok := record.Labeled()
		if !ok {
			return nil, nil, errors.Wrapf(data.ErrConfiguration, "record %d has no label: %q", i, record.Text)
		}
		features = append(features, featurizer.Featurize(record.Text))
		labels = append(labels, label)
	}
	return features, labels, nil
}

// CountLabels returns the number of positive and negative labels.
func CountLabels(labels []bool) (positive, negative int) {
	for _, label := range labels {
		if label {
			positive++
		} else {
			negative++
		}
	}
	return positive, negative
}
