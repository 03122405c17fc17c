package config

import (
	"os"
	"path/filepath"

	"github.com/cyberprophet/sentiment-analysis/data"
	"github.com/cyberprophet/sentiment-analysis/logging"
	"github.com/cyberprophet/sentiment-analysis/ml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Data       DataConfig           `yaml:"data"`
	Split      SplitConfig          `yaml:"split"`
	Featurizer ml.FeaturizerOptions `yaml:"featurizer"`
	Model      ModelConfig          `yaml:"model"`
	Evaluation EvaluationConfig     `yaml:"evaluation"`
	Prediction PredictionConfig     `yaml:"prediction"`
	Database   DatabaseConfig       `yaml:"database"`
	Log        logging.Config       `yaml:"log"`
}

type DataConfig struct {
	Path             string `yaml:"path"`
	DropDuplicates   bool   `yaml:"drop_duplicates"`
	data.LoadOptions `yaml:",inline"`
}

type SplitConfig struct {
	TestFraction float64 `yaml:"test_fraction"`
	// Seed fixes the shuffle. Nil draws a fresh seed per run.
	Seed *int64 `yaml:"seed"`
}

type ModelConfig struct {
	Type             string `yaml:"type"`
	Path             string `yaml:"path"`
	ml.TrainerParams `yaml:",inline"`
}

type EvaluationConfig struct {
	Threshold float64 `yaml:"threshold"`
}

type PredictionConfig struct {
	Single    string   `yaml:"single"`
	Batch     []string `yaml:"batch"`
	CacheSize int      `yaml:"cache_size"`
	Workers   int      `yaml:"workers"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Path:        filepath.Join("datasets", "sample_labelled.txt"),
			LoadOptions: data.DefaultLoadOptions(),
		},
		Split:      SplitConfig{TestFraction: 0.2},
		Featurizer: ml.DefaultFeaturizerOptions(),
		Model: ModelConfig{
			Type: ml.KindLogisticRegression,
			TrainerParams: ml.TrainerParams{
				L2:            1e-4,
				MaxIterations: 100,
				Tolerance:     1e-5,
				MaxDepth:      10,
				MinLeaf:       2,
			},
		},
		Evaluation: EvaluationConfig{Threshold: ml.DefaultThreshold},
		Prediction: PredictionConfig{
			Single: "This was a very bad steak.",
			Batch: []string{
				"This was a horrible meal.",
				"I love this spaghetti.",
			},
			CacheSize: 1024,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load decodes the yaml file at path over the defaults. A relative data path
// is resolved against the directory of the file.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(data.ErrResource, "read config %s: %v", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, errors.Wrapf(data.ErrConfiguration, "decode config %s: %v", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Data.Path = resolve(dir, cfg.Data.Path)
	cfg.Model.Path = resolve(dir, cfg.Model.Path)
	cfg.Database.Path = resolve(dir, cfg.Database.Path)
	cfg.Log.File = resolve(dir, cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "config %s", path)
	}
	return cfg, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Validate reports the first invalid setting as a configuration error.
func (c *Config) Validate() error {
	if c.Data.Path == "" {
		return errors.Wrap(data.ErrConfiguration, "data.path is required")
	}
	if err := c.Data.LoadOptions.Validate(); err != nil {
		return err
	}
	if c.Split.TestFraction <= 0 || c.Split.TestFraction >= 1 {
		return errors.Wrapf(data.ErrConfiguration, "split.test_fraction must be in (0, 1), got %v", c.Split.TestFraction)
	}
	if _, err := ml.NewTextFeaturizer(c.Featurizer); err != nil {
		return errors.Wrapf(data.ErrConfiguration, "featurizer: %v", err)
	}
	if _, err := ml.NewTrainer(c.Model.Type, c.Model.TrainerParams); err != nil {
		return errors.Wrapf(data.ErrConfiguration, "model: %v", err)
	}
	if c.Evaluation.Threshold <= 0 || c.Evaluation.Threshold >= 1 {
		return errors.Wrapf(data.ErrConfiguration, "evaluation.threshold must be in (0, 1), got %v", c.Evaluation.Threshold)
	}
	if c.Prediction.CacheSize < 0 || c.Prediction.Workers < 0 {
		return errors.Wrapf(data.ErrConfiguration, "prediction cache_size and workers must not be negative")
	}
	return nil
}
