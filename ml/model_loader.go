package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const modelFileVersion = 1

type TrainerParams struct {
	L2            float64 `yaml:"l2"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxDepth      int     `yaml:"max_depth"`
	MinLeaf       int     `yaml:"min_leaf"`
}

func NewTrainer(kind string, params TrainerParams) (Trainer, error) {
	switch kind {
	case KindLogisticRegression, "":
		return NewLogisticRegressionTrainer(params.L2, params.MaxIterations, params.Tolerance), nil
	case KindDecisionTree:
		return NewDecisionTreeTrainer(params.MaxDepth, params.MinLeaf), nil
	default:
		return nil, errors.Errorf("unsupported model type %q", kind)
	}
}

type modelFile struct {
	Version       int               `json:"version"`
	InputColumn   string            `json:"input_column"`
	FeatureColumn string            `json:"feature_column"`
	LabelColumn   string            `json:"label_column"`
	Featurizer    FeaturizerOptions `json:"featurizer"`
	Threshold     float64           `json:"threshold"`
	TrainedAt     time.Time         `json:"trained_at"`
	ModelType     string            `json:"model_type"`
	Classifier    json.RawMessage   `json:"classifier"`
}

func (m *Model) Save(path string) error {
	classifier, err := json.Marshal(m.classifier)
	if err != nil {
		return errors.Wrap(err, "encode classifier")
	}
	payload, err := json.Marshal(modelFile{
		Version:       modelFileVersion,
		InputColumn:   InputColumn,
		FeatureColumn: FeatureColumn,
		LabelColumn:   LabelColumn,
		Featurizer:    m.featurizer.Options(),
		Threshold:     m.threshold,
		TrainedAt:     m.trainedAt,
		ModelType:     m.classifier.Kind(),
		Classifier:    classifier,
	})
	if err != nil {
		return errors.Wrap(err, "encode model")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create model dir")
		}
	}
	return os.WriteFile(path, payload, 0o600)
}

func LoadModel(path string) (*Model, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read model")
	}
	var file modelFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, errors.Wrap(err, "decode model")
	}
	if file.Version != modelFileVersion {
		return nil, errors.Errorf("unsupported model file version %d", file.Version)
	}
	if file.InputColumn != InputColumn || file.FeatureColumn != FeatureColumn || file.LabelColumn != LabelColumn {
		return nil, errors.Errorf("model columns %s/%s/%s do not match %s/%s/%s",
			file.InputColumn, file.FeatureColumn, file.LabelColumn, InputColumn, FeatureColumn, LabelColumn)
	}
	if file.Threshold <= 0 || file.Threshold >= 1 {
		return nil, errors.Errorf("invalid threshold %v", file.Threshold)
	}

	featurizer, err := NewTextFeaturizer(file.Featurizer)
	if err != nil {
		return nil, err
	}

	var classifier Classifier
	switch file.ModelType {
	case KindLogisticRegression:
		model := &LogisticRegression{}
		if err := json.Unmarshal(file.Classifier, model); err != nil {
			return nil, errors.Wrap(err, "decode logistic regression")
		}
		if len(model.Weights) != featurizer.Dim() {
			return nil, errors.Errorf("weights length %d does not match feature dim %d", len(model.Weights), featurizer.Dim())
		}
		classifier = model
	case KindDecisionTree:
		model := &DecisionTree{}
		if err := json.Unmarshal(file.Classifier, model); err != nil {
			return nil, errors.Wrap(err, "decode decision tree")
		}
		if err := model.Validate(); err != nil {
			return nil, err
		}
		classifier = model
	default:
		return nil, errors.Errorf("unsupported model type %q", file.ModelType)
	}

	return &Model{
		featurizer: featurizer,
		classifier: classifier,
		threshold:  file.Threshold,
		trainedAt:  file.TrainedAt,
	}, nil
}
