package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cyberprophet/sentiment-analysis/data"
	"github.com/cyberprophet/sentiment-analysis/db"
	"github.com/cyberprophet/sentiment-analysis/logging"
	"github.com/cyberprophet/sentiment-analysis/ml"
	"github.com/cyberprophet/sentiment-analysis/pipeline"
	"go.uber.org/zap"
)

func main() {
	dataPath := flag.String("data", "", "labelled dataset (text<TAB>0|1)")
	modelPath := flag.String("model_path", "./models/sentiment.json", "model output path")
	modelType := flag.String("model_type", ml.KindLogisticRegression, "logistic_regression or decision_tree")
	maxDepth := flag.Int("max_depth", 10, "max tree depth")
	l2 := flag.Float64("l2", 1e-4, "L2 regularization for logistic regression")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	seed := flag.Int64("seed", time.Now().UnixNano(), "split seed")
	dbPath := flag.String("db", "", "sqlite database for the training log")
	dedupe := flag.Bool("drop_duplicates", false, "drop records whose cleaned text was already seen")
	predict := flag.String("predict", "", "score this text with the model at -model_path instead of training")
	flag.Parse()

	logger, err := logging.New(logging.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *predict != "" {
		model, err := ml.LoadModel(*modelPath)
		if err != nil {
			logger.Fatal("failed to load model", logging.ErrorField(err))
		}
		p := model.PredictOne(data.Unlabeled(*predict))
		fmt.Printf("Sentiment: %s\nPrediction: %s\nProbability: %g \n", p.Text, pipeline.Sentiment(p.PredictedLabel), p.Probability)
		return
	}

	if *dataPath == "" {
		logger.Fatal("data is required")
	}

	records, _, _, err := pipeline.LoadCleaned(*dataPath, data.DefaultLoadOptions(), *dedupe, logger)
	if err != nil {
		logger.Fatal("failed to load dataset", logging.ErrorField(err))
	}
	train, test, err := data.Split(records, *testRatio, *seed)
	if err != nil {
		logger.Fatal("failed to split dataset", logging.ErrorField(err))
	}

	trainer, err := ml.NewTrainer(*modelType, ml.TrainerParams{L2: *l2, MaxDepth: *maxDepth})
	if err != nil {
		logger.Fatal("invalid model type", logging.ErrorField(err))
	}
	featurizer, err := ml.NewTextFeaturizer(ml.DefaultFeaturizerOptions())
	if err != nil {
		logger.Fatal("invalid featurizer", logging.ErrorField(err))
	}
	builder, err := ml.NewBuilder(featurizer, trainer, ml.DefaultThreshold, logger)
	if err != nil {
		logger.Fatal("invalid builder", logging.ErrorField(err))
	}

	ctx := context.Background()
	model, err := builder.Fit(ctx, train)
	if err != nil {
		logger.Fatal("failed to train model", logging.ErrorField(err))
	}
	metrics, err := ml.Evaluate(ctx, model, test)
	if err != nil {
		logger.Fatal("failed to evaluate model", logging.ErrorField(err))
	}
	logger.Info("Model evaluated",
		zap.Int64("seed", *seed),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("auc", metrics.AUC),
		zap.Float64("f1", metrics.F1Score),
		zap.Float64("precision", metrics.PositivePrecision),
		zap.Float64("recall", metrics.PositiveRecall))

	if err := model.Save(*modelPath); err != nil {
		logger.Fatal("failed to save model", logging.ErrorField(err))
	}

	if *dbPath != "" {
		if err := db.InitDB(*dbPath); err != nil {
			logger.Fatal("failed to open database", logging.ErrorField(err))
		}
		defer db.Close()
		id, err := db.SaveTrainingLog(db.TrainingLog{
			ModelName:  model.Kind(),
			Dataset:    *dataPath,
			Seed:       *seed,
			Accuracy:   metrics.Accuracy,
			AUC:        metrics.AUC,
			F1Score:    metrics.F1Score,
			Precision:  metrics.PositivePrecision,
			Recall:     metrics.PositiveRecall,
			LogLoss:    metrics.LogLoss,
			TrainedAt:  model.TrainedAt(),
			DataPoints: len(train),
			TestPoints: len(test),
		})
		if err != nil {
			logger.Fatal("failed to save training log", logging.ErrorField(err))
		}
		logger.Info("Training logged", zap.Int64("run_id", id))
	}

	fmt.Printf("model saved to %s\n", *modelPath)
}
