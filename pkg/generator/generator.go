package generator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/central-hospital/insights-platform/pkg/common/models"
)

var ErrInvalidCount = errors.New("record count must be positive")

var Departments = []string{
	"Cardiology",
	"Oncology",
	"Orthopedics",
	"Neurology",
	"Emergency",
	"Gastroenterology",
	"Pulmonology",
}

var TreatmentCategories = []string{
	"Surgery",
	"Medication",
	"Therapy",
	"Observation",
	"Diagnostics",
}

var genders = []string{"Male", "Female", "Other"}

// baseDate anchors all admission dates; offsets span one calendar year.
var baseDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Generate emits count synthetic patient encounters. The sequence is fully
// determined by seed.
func Generate(count int, seed int64) ([]models.PatientEvent, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}

	rng := rand.New(rand.NewSource(seed))
	events := make([]models.PatientEvent, 0, count)

	for i := 0; i < count; i++ {
		admissionOffset := rng.Intn(365)
		admissionDate := baseDate.AddDate(0, 0, admissionOffset)

		lengthOfStay := poisson(rng, 3)
		if lengthOfStay < 1 {
			lengthOfStay = 1
		}
		dischargeDate := admissionDate.AddDate(0, 0, lengthOfStay)

		admissionType := models.AdmissionInpatient
		if rng.Float64() >= 0.6 {
			admissionType = models.AdmissionOPD
		}

		age := 1 + rng.Intn(94)
		gender := pickWeighted(rng, genders, []float64{0.45, 0.45, 0.10})

		labScore := clamp01(rng.NormFloat64()*0.15 + 0.5)
		vitalRisk := clamp01(rng.NormFloat64()*0.2 + 0.4)
		riskScore := clamp01(0.5*labScore + 0.5*vitalRisk + rng.NormFloat64()*0.05)

		icuFlag := riskScore > 0.7 || (admissionType == models.AdmissionInpatient && lengthOfStay > 3)
		complicationFlag := rng.Float64() < 0.18
		mortalityFlag := rng.Float64() < 0.03
		readmitted := rng.Float64() < 0.2

		cost := 5000 + float64(age)*30 + float64(lengthOfStay)*1000 + rng.NormFloat64()*800
		if icuFlag {
			cost += 4000
		}
		if cost < 800 {
			cost = 800
		}

		department := Departments[rng.Intn(len(Departments))]

		events = append(events, models.PatientEvent{
			PatientID:         i + 1,
			AdmissionType:     admissionType,
			Department:        department,
			TreatmentCategory: TreatmentCategories[rng.Intn(len(TreatmentCategories))],
			Age:               age,
			Gender:            gender,
			AdmissionDate:     admissionDate,
			DischargeDate:     dischargeDate,
			LengthOfStay:      lengthOfStay,
			ICUFlag:           icuFlag,
			ComplicationFlag:  complicationFlag,
			MortalityFlag:     mortalityFlag,
			Readmitted:        readmitted,
			TreatmentCost:     round2(cost),
			LabScore:          round3(labScore),
			VitalRiskScore:    round3(vitalRisk),
			RiskScore:         round3(riskScore),
			NoteText:          buildClinicalNote(department, riskScore),
			OPDVisit:          admissionType == models.AdmissionOPD,
		})
	}

	return events, nil
}

func buildClinicalNote(department string, risk float64) string {
	severity := "low"
	switch {
	case risk > 0.6:
		severity = "high"
	case risk > 0.3:
		severity = "moderate"
	}
	return fmt.Sprintf(
		"Patient admitted to %s with %s acuity. Clinical team monitoring vitals, labs, and response to therapy.",
		department, severity,
	)
}

// poisson draws from Poisson(lambda) using Knuth's product method.
func poisson(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

func pickWeighted(rng *rand.Rand, values []string, weights []float64) string {
	r := rng.Float64()
	var cum float64
	for i, w := range weights {
		cum += w
		if r < cum {
			return values[i]
		}
	}
	return values[len(values)-1]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
