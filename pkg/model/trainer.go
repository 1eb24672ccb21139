package model

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/central-hospital/insights-platform/pkg/common/logger"
	"github.com/central-hospital/insights-platform/pkg/common/models"
	"github.com/central-hospital/insights-platform/pkg/features"
	"github.com/central-hospital/insights-platform/pkg/ml/gbdt"
	"github.com/central-hospital/insights-platform/pkg/ml/linear"
)

const (
	TypeGBDT     = "gbdt"
	TypeLogistic = "logistic"
)

// InsufficientDataError aborts training when the positive class is too
// small to evaluate a classifier.
type InsufficientDataError struct {
	Positives int
	Required  int
}

func (e InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data: %d positive rows, need at least %d", e.Positives, e.Required)
}

func IsInsufficientDataError(err error) bool {
	var ie InsufficientDataError
	return errors.As(err, &ie)
}

var ErrUnknownModelType = errors.New("unknown model type")

// Estimator is the capability every model variant implements.
type Estimator interface {
	Fit(samples [][]float64, labels []float64) error
	PredictProb(sample []float64) float64
}

type gbdtEstimator struct {
	opts  gbdt.Options
	model gbdt.Model
}

func (e *gbdtEstimator) Fit(samples [][]float64, labels []float64) error {
	e.model, _ = gbdt.Train(samples, labels, e.opts)
	return nil
}

func (e *gbdtEstimator) PredictProb(sample []float64) float64 {
	return e.model.PredictProb(sample)
}

type logisticEstimator struct {
	opts  linear.Options
	model linear.Model
}

func (e *logisticEstimator) Fit(samples [][]float64, labels []float64) error {
	e.model, _ = linear.Train(samples, labels, e.opts)
	return nil
}

func (e *logisticEstimator) PredictProb(sample []float64) float64 {
	return e.model.PredictProb(sample)
}

func NewEstimator(modelType string) (Estimator, error) {
	switch modelType {
	case TypeGBDT, "":
		return &gbdtEstimator{}, nil
	case TypeLogistic:
		return &logisticEstimator{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownModelType, modelType)
}

type Config struct {
	ModelType    string
	TestFraction float64
	Threshold    float64
	MinPositives int
	Seed         int64
}

func (c Config) withDefaults() Config {
	if c.ModelType == "" {
		c.ModelType = TypeGBDT
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		c.TestFraction = 0.25
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = 0.5
	}
	if c.MinPositives <= 0 {
		c.MinPositives = 10
	}
	return c
}

// Output bundles everything the training stage produces.
type Output struct {
	Predictions []models.PredictionRecord
	Metrics     models.ModelMetrics
	Artifact    Artifact
}

// Train fits a readmission classifier on the processed table, evaluates
// on a held-out stratified split, and scores every patient.
func Train(patients []models.ProcessedPatient, encoder *features.Encoder, cfg Config) (Output, error) {
	cfg = cfg.withDefaults()

	samples := encoder.TransformAll(patients)
	labels := make([]float64, len(patients))
	positives := 0
	for i, p := range patients {
		if p.Readmitted {
			labels[i] = 1
			positives++
		}
	}
	if positives < cfg.MinPositives {
		return Output{}, InsufficientDataError{Positives: positives, Required: cfg.MinPositives}
	}

	trainIdx, testIdx := stratifiedSplit(labels, cfg.TestFraction, cfg.Seed)

	trainSamples := gather(samples, trainIdx)
	trainLabels := gatherLabels(labels, trainIdx)

	estimator, err := NewEstimator(cfg.ModelType)
	if err != nil {
		return Output{}, err
	}
	if err := estimator.Fit(trainSamples, trainLabels); err != nil {
		return Output{}, fmt.Errorf("model fit failed: %w", err)
	}

	testScores := make([]float64, len(testIdx))
	testLabels := make([]float64, len(testIdx))
	correct := 0
	for i, idx := range testIdx {
		testScores[i] = estimator.PredictProb(samples[idx])
		testLabels[i] = labels[idx]
		predicted := 0.0
		if testScores[i] >= cfg.Threshold {
			predicted = 1
		}
		if predicted == labels[idx] {
			correct++
		}
	}

	metrics := models.ModelMetrics{
		ROCAUC:       round3(rocAUC(testScores, testLabels)),
		TestAccuracy: round3(float64(correct) / float64(len(testIdx))),
		TrainRows:    len(trainIdx),
		TestRows:     len(testIdx),
		PositiveRows: positives,
		ModelType:    cfg.ModelType,
	}

	predictions := make([]models.PredictionRecord, len(patients))
	for i, p := range patients {
		prob := estimator.PredictProb(samples[i])
		class := 0
		if prob >= cfg.Threshold {
			class = 1
		}
		predictions[i] = models.PredictionRecord{
			PatientID:                p.PatientID,
			Department:               p.Department,
			LengthOfStay:             p.LengthOfStay,
			Readmitted:               p.Readmitted,
			PredictedReadmissionProb: prob,
			PredictedClass:           class,
		}
	}

	logger.WithFields(map[string]interface{}{
		"model_type": cfg.ModelType,
		"roc_auc":    metrics.ROCAUC,
		"accuracy":   metrics.TestAccuracy,
		"train_rows": metrics.TrainRows,
		"test_rows":  metrics.TestRows,
	}).Info("Model training completed")

	artifact := Artifact{
		ModelType:         cfg.ModelType,
		FeatureNames:      encoder.FeatureNames(),
		VocabularyVersion: encoder.VocabularyVersion(),
		Threshold:         cfg.Threshold,
		Metrics:           metrics,
		CreatedAt:         time.Now().UTC(),
	}
	switch est := estimator.(type) {
	case *gbdtEstimator:
		artifact.GBDT = &est.model
	case *logisticEstimator:
		artifact.Logistic = &est.model
	}

	return Output{Predictions: predictions, Metrics: metrics, Artifact: artifact}, nil
}

// stratifiedSplit holds out testFraction of each class, seeded so reruns
// split identically.
func stratifiedSplit(labels []float64, testFraction float64, seed int64) (trainIdx, testIdx []int) {
	rng := rand.New(rand.NewSource(seed))

	var pos, neg []int
	for i, y := range labels {
		if y == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	rng.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	rng.Shuffle(len(neg), func(i, j int) { neg[i], neg[j] = neg[j], neg[i] })

	split := func(class []int) {
		cut := int(float64(len(class)) * testFraction)
		if cut == 0 && len(class) > 1 {
			cut = 1
		}
		testIdx = append(testIdx, class[:cut]...)
		trainIdx = append(trainIdx, class[cut:]...)
	}
	split(pos)
	split(neg)
	return trainIdx, testIdx
}

func gather(samples [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = samples[j]
	}
	return out
}

func gatherLabels(labels []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}
