package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/central-hospital/insights-platform/pkg/common/logger"
	"github.com/central-hospital/insights-platform/pkg/features"
	"github.com/central-hospital/insights-platform/pkg/generator"
	"github.com/central-hospital/insights-platform/pkg/preprocess"
)

func init() {
	logger.Init()
}

func trainOn(t *testing.T, records int, cfg Config) Output {
	t.Helper()
	events, err := generator.Generate(records, 42)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	result, err := preprocess.Run(events)
	if err != nil {
		t.Fatalf("preprocess failed: %v", err)
	}
	encoder := features.NewEncoder(features.DefaultVocabulary())
	output, err := Train(result.Patients, encoder, cfg)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	return output
}

func TestTrainEndToEnd(t *testing.T) {
	output := trainOn(t, 500, Config{Seed: 42})

	if len(output.Predictions) != 500 {
		t.Fatalf("expected 500 predictions, got %d", len(output.Predictions))
	}
	if output.Metrics.ROCAUC < 0 || output.Metrics.ROCAUC > 1 {
		t.Fatalf("roc auc out of range: %f", output.Metrics.ROCAUC)
	}
	if output.Metrics.TestAccuracy < 0 || output.Metrics.TestAccuracy > 1 {
		t.Fatalf("accuracy out of range: %f", output.Metrics.TestAccuracy)
	}
	if output.Metrics.TrainRows+output.Metrics.TestRows != 500 {
		t.Fatalf("split does not cover table: %d + %d", output.Metrics.TrainRows, output.Metrics.TestRows)
	}

	seen := make(map[int]bool)
	for _, p := range output.Predictions {
		if p.PredictedReadmissionProb < 0 || p.PredictedReadmissionProb > 1 {
			t.Fatalf("probability out of range for patient %d: %f", p.PatientID, p.PredictedReadmissionProb)
		}
		wantClass := 0
		if p.PredictedReadmissionProb >= 0.5 {
			wantClass = 1
		}
		if p.PredictedClass != wantClass {
			t.Fatalf("class does not match default threshold for patient %d", p.PatientID)
		}
		if seen[p.PatientID] {
			t.Fatalf("duplicate prediction for patient %d", p.PatientID)
		}
		seen[p.PatientID] = true
	}
}

func TestTrainCustomThreshold(t *testing.T) {
	output := trainOn(t, 300, Config{Seed: 7, Threshold: 0.8})
	for _, p := range output.Predictions {
		wantClass := 0
		if p.PredictedReadmissionProb >= 0.8 {
			wantClass = 1
		}
		if p.PredictedClass != wantClass {
			t.Fatalf("class does not honor threshold 0.8 for patient %d", p.PatientID)
		}
	}
}

func TestTrainLogisticVariant(t *testing.T) {
	output := trainOn(t, 300, Config{Seed: 7, ModelType: TypeLogistic})
	if output.Metrics.ModelType != TypeLogistic {
		t.Fatalf("expected logistic metrics, got %s", output.Metrics.ModelType)
	}
	if output.Artifact.Logistic == nil || output.Artifact.GBDT != nil {
		t.Fatal("artifact should carry logistic weights only")
	}
}

func TestTrainInsufficientPositives(t *testing.T) {
	events, err := generator.Generate(40, 1)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	// Force nearly all labels negative.
	for i := range events {
		events[i].Readmitted = i < 2
	}
	result, err := preprocess.Run(events)
	if err != nil {
		t.Fatalf("preprocess failed: %v", err)
	}
	encoder := features.NewEncoder(features.DefaultVocabulary())

	_, err = Train(result.Patients, encoder, Config{Seed: 1, MinPositives: 10})
	if err == nil {
		t.Fatal("expected insufficient data error")
	}
	if !IsInsufficientDataError(err) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}

func TestTrainUnknownModelType(t *testing.T) {
	if _, err := NewEstimator("transformer"); err == nil {
		t.Fatal("expected error for unknown model type")
	}
}

func TestTrainDeterministicPredictions(t *testing.T) {
	first := trainOn(t, 200, Config{Seed: 42})
	second := trainOn(t, 200, Config{Seed: 42})

	for i := range first.Predictions {
		if first.Predictions[i].PredictedReadmissionProb != second.Predictions[i].PredictedReadmissionProb {
			t.Fatalf("prediction %d differs across identical runs", i)
		}
	}
	if first.Metrics != second.Metrics {
		t.Fatal("metrics differ across identical runs")
	}
}

func TestArtifactSaveAndLoad(t *testing.T) {
	output := trainOn(t, 200, Config{Seed: 42})

	dir := t.TempDir()
	path := filepath.Join(dir, "readmission_model.json")
	payload, err := json.MarshalIndent(output.Artifact, "", "  ")
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	loader := NewLoader(path)
	artifact, err := loader.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if artifact.ModelType != TypeGBDT {
		t.Fatalf("unexpected model type %s", artifact.ModelType)
	}
	if len(artifact.FeatureNames) == 0 {
		t.Fatal("expected feature names in artifact")
	}

	sample := make([]float64, len(artifact.FeatureNames))
	prob, err := artifact.PredictProb(sample)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if prob < 0 || prob > 1 {
		t.Fatalf("probability out of range: %f", prob)
	}

	// Second load hits the mtime cache.
	if _, err := loader.Load(); err != nil {
		t.Fatalf("cached load failed: %v", err)
	}
}

func TestROCAUCRanking(t *testing.T) {
	scores := []float64{0.9, 0.8, 0.3, 0.1}
	labels := []float64{1, 1, 0, 0}
	if auc := rocAUC(scores, labels); auc != 1 {
		t.Fatalf("expected perfect auc, got %f", auc)
	}

	reversed := []float64{0.1, 0.2, 0.8, 0.9}
	if auc := rocAUC(reversed, labels); auc != 0 {
		t.Fatalf("expected zero auc, got %f", auc)
	}

	tied := []float64{0.5, 0.5, 0.5, 0.5}
	if auc := rocAUC(tied, labels); auc != 0.5 {
		t.Fatalf("expected 0.5 auc on ties, got %f", auc)
	}

	oneClass := []float64{0.2, 0.4}
	if auc := rocAUC(oneClass, []float64{1, 1}); auc != 0.5 {
		t.Fatalf("expected 0.5 auc for single class, got %f", auc)
	}
}
