package main

import (
	"context"
	"flag"
	"os"

	"github.com/central-hospital/insights-platform/pkg/artifacts"
	"github.com/central-hospital/insights-platform/pkg/common/config"
	"github.com/central-hospital/insights-platform/pkg/common/database"
	"github.com/central-hospital/insights-platform/pkg/common/kafka"
	"github.com/central-hospital/insights-platform/pkg/common/logger"
	"github.com/central-hospital/insights-platform/pkg/features"
	"github.com/central-hospital/insights-platform/pkg/pipeline"
	"github.com/central-hospital/insights-platform/pkg/runs"
)

func main() {
	logger.Init()
	cfg := config.Load()

	records := flag.Int("records", cfg.RecordCount, "number of synthetic patient records to generate")
	seed := flag.Int64("seed", cfg.Seed, "seed for the synthetic generator and the train/test split")
	dataDir := flag.String("data-dir", cfg.DataDir, "artifact directory")
	modelType := flag.String("model", cfg.ModelType, "model type: gbdt or logistic")
	threshold := flag.Float64("threshold", cfg.RiskThreshold, "probability threshold for the predicted class")
	regenerate := flag.Bool("regenerate", !cfg.ReuseExistingRaw, "regenerate the raw table even if one exists")
	flag.Parse()

	vocabulary := features.DefaultVocabulary()
	if cfg.VocabularyPath != "" {
		loaded, err := features.LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to load feature vocabulary")
		}
		vocabulary = loaded
	}

	store := artifacts.NewStore(*dataDir)
	runner := pipeline.NewRunner(store, pipeline.Options{
		Records:          *records,
		Seed:             *seed,
		ModelType:        *modelType,
		TestFraction:     cfg.TestFraction,
		Threshold:        *threshold,
		MinPositives:     cfg.MinPositiveRows,
		Vocabulary:       vocabulary,
		ReuseExistingRaw: !*regenerate,
	})

	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		runner = runner.WithPublisher(producer)
	}

	if cfg.RegistryEnabled {
		db, err := database.GetPostgres()
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to run registry database")
		}
		defer database.ClosePostgres()

		recorder, err := runs.NewRecorder(db)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate run registry tables")
		}
		runner = runner.WithRegistry(recorder)
	}

	summary, err := runner.Run(context.Background())
	if err != nil {
		logger.Log.WithError(err).WithField("stage", pipeline.FailedStage(err)).Error("Pipeline run failed")
		os.Exit(1)
	}

	logger.WithFields(map[string]interface{}{
		"run_id":       summary.RunID,
		"raw_rows":     summary.RawRows,
		"dropped_rows": summary.DroppedRows,
		"predictions":  summary.Predictions,
		"roc_auc":      summary.ModelMetrics.ROCAUC,
		"accuracy":     summary.ModelMetrics.TestAccuracy,
		"reused_raw":   summary.ReusedRaw,
		"data_dir":     store.Dir(),
	}).Info("Pipeline run finished")
}
