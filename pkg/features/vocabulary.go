package features

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Group is one categorical feature and the fixed set of values it encodes
// to. Values outside the list encode to an all-zero indicator block.
type Group struct {
	Field  string   `yaml:"field" json:"field"`
	Values []string `yaml:"values" json:"values"`
}

// Vocabulary pins the categorical encoding so that inference-time vectors
// line up with training-time vectors across runs.
type Vocabulary struct {
	Version int     `yaml:"version" json:"version"`
	Groups  []Group `yaml:"groups" json:"groups"`
}

func LoadVocabulary(path string) (Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultVocabulary(), err
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(content, &vocab); err != nil {
		return Vocabulary{}, err
	}

	if len(vocab.Groups) == 0 {
		return Vocabulary{}, errors.New("no feature groups configured")
	}

	return vocab, nil
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Version: 1,
		Groups: []Group{
			{Field: "department", Values: []string{
				"Cardiology", "Oncology", "Orthopedics", "Neurology",
				"Emergency", "Gastroenterology", "Pulmonology",
			}},
			{Field: "treatment_category", Values: []string{
				"Surgery", "Medication", "Therapy", "Observation", "Diagnostics",
			}},
			{Field: "admission_type", Values: []string{"Inpatient", "OPD"}},
			{Field: "gender", Values: []string{"Male", "Female", "Other"}},
		},
	}
}
