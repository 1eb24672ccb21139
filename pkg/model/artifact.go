package model

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/central-hospital/insights-platform/pkg/common/models"
	"github.com/central-hospital/insights-platform/pkg/ml/gbdt"
	"github.com/central-hospital/insights-platform/pkg/ml/linear"
)

// Artifact is the serialized trained model: enough to score a feature
// vector produced by the same vocabulary version, plus the evaluation
// metrics captured at training time.
type Artifact struct {
	ModelType         string              `json:"model_type"`
	FeatureNames      []string            `json:"feature_names"`
	VocabularyVersion int                 `json:"vocabulary_version"`
	Threshold         float64             `json:"threshold"`
	GBDT              *gbdt.Model         `json:"gbdt,omitempty"`
	Logistic          *linear.Model       `json:"logistic,omitempty"`
	Metrics           models.ModelMetrics `json:"metrics"`
	CreatedAt         time.Time           `json:"created_at"`
}

// PredictProb scores a sample ordered per FeatureNames.
func (a Artifact) PredictProb(sample []float64) (float64, error) {
	if len(sample) != len(a.FeatureNames) {
		return 0, fmt.Errorf("sample has %d features, artifact expects %d", len(sample), len(a.FeatureNames))
	}
	switch {
	case a.GBDT != nil:
		return a.GBDT.PredictProb(sample), nil
	case a.Logistic != nil:
		return a.Logistic.PredictProb(sample), nil
	}
	return 0, fmt.Errorf("artifact carries no model weights")
}

// Loader reads a model artifact from disk, reusing the parsed copy until
// the file's mtime changes.
type Loader struct {
	path   string
	mu     sync.RWMutex
	cached *Artifact
	mod    int64
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) Load() (Artifact, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return Artifact{}, err
	}
	mod := info.ModTime().UnixNano()

	l.mu.RLock()
	if l.cached != nil && l.mod == mod {
		artifact := *l.cached
		l.mu.RUnlock()
		return artifact, nil
	}
	l.mu.RUnlock()

	content, err := os.ReadFile(l.path)
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("corrupt model artifact: %w", err)
	}

	l.mu.Lock()
	l.cached = &artifact
	l.mod = mod
	l.mu.Unlock()
	return artifact, nil
}
