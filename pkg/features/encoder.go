package features

import (
	"fmt"

	"github.com/central-hospital/insights-platform/pkg/common/models"
)

// numericFeatures are taken from the processed table as-is, in this order.
var numericFeatures = []string{
	"age",
	"length_of_stay",
	"icu_flag",
	"complication_flag",
	"mortality_flag",
	"lab_score",
	"vital_risk_score",
	"risk_score",
	"cost_per_day",
	"treatment_cost",
	"is_inpatient",
	"opd_visit",
}

// Encoder turns a ProcessedPatient into a flat feature vector: numeric
// columns first, then one indicator block per vocabulary group.
type Encoder struct {
	vocab Vocabulary
	names []string
}

func NewEncoder(vocab Vocabulary) *Encoder {
	names := make([]string, 0, len(numericFeatures))
	names = append(names, numericFeatures...)
	for _, group := range vocab.Groups {
		for _, value := range group.Values {
			names = append(names, fmt.Sprintf("%s_%s", group.Field, value))
		}
	}
	return &Encoder{vocab: vocab, names: names}
}

// FeatureNames returns the stable column order of Transform output.
func (e *Encoder) FeatureNames() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

func (e *Encoder) VocabularyVersion() int {
	return e.vocab.Version
}

func (e *Encoder) Transform(p models.ProcessedPatient) []float64 {
	sample := make([]float64, 0, len(e.names))
	sample = append(sample,
		float64(p.Age),
		float64(p.LengthOfStay),
		boolToFloat(p.ICUFlag),
		boolToFloat(p.ComplicationFlag),
		boolToFloat(p.MortalityFlag),
		p.LabScore,
		p.VitalRiskScore,
		p.RiskScore,
		p.CostPerDay,
		p.TreatmentCost,
		boolToFloat(p.IsInpatient),
		boolToFloat(p.OPDVisit),
	)

	for _, group := range e.vocab.Groups {
		actual := categoryValue(p, group.Field)
		for _, value := range group.Values {
			// Unseen categories leave the whole block at zero.
			sample = append(sample, boolToFloat(actual == value))
		}
	}
	return sample
}

// TransformAll encodes the full table in row order.
func (e *Encoder) TransformAll(patients []models.ProcessedPatient) [][]float64 {
	samples := make([][]float64, len(patients))
	for i, p := range patients {
		samples[i] = e.Transform(p)
	}
	return samples
}

func categoryValue(p models.ProcessedPatient, field string) string {
	switch field {
	case "department":
		return p.Department
	case "treatment_category":
		return p.TreatmentCategory
	case "admission_type":
		return p.AdmissionType
	case "gender":
		return p.Gender
	}
	return ""
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
