package preprocess

import (
	"testing"
	"time"

	"github.com/central-hospital/insights-platform/pkg/common/logger"
	"github.com/central-hospital/insights-platform/pkg/common/models"
	"github.com/central-hospital/insights-platform/pkg/generator"
)

func init() {
	logger.Init()
}

func TestRunDerivesColumns(t *testing.T) {
	admission := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	events := []models.PatientEvent{
		{
			PatientID:     1,
			AdmissionType: models.AdmissionInpatient,
			Department:    "Cardiology",
			AdmissionDate: admission,
			DischargeDate: admission.AddDate(0, 0, 4),
			TreatmentCost: 8000,
		},
		{
			PatientID:     2,
			AdmissionType: models.AdmissionOPD,
			Department:    "Oncology",
			AdmissionDate: admission,
			DischargeDate: admission, // same-day visit
			TreatmentCost: 1200,
			Readmitted:    true,
		},
	}

	result, err := Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Patients) != 2 {
		t.Fatalf("expected 2 processed patients, got %d", len(result.Patients))
	}

	first := result.Patients[0]
	if first.LengthOfStay != 4 {
		t.Fatalf("expected length of stay 4, got %d", first.LengthOfStay)
	}
	if first.CostPerDay != 2000 {
		t.Fatalf("expected cost per day 2000, got %f", first.CostPerDay)
	}
	if !first.IsInpatient {
		t.Fatal("expected inpatient flag")
	}
	if first.AdmissionWeek != "2025-W10" {
		t.Fatalf("unexpected week bucket %s", first.AdmissionWeek)
	}
	if first.WeekStart != "2025-03-03" {
		t.Fatalf("unexpected week start %s", first.WeekStart)
	}

	second := result.Patients[1]
	if second.LengthOfStay != 0 {
		t.Fatalf("expected zero length of stay, got %d", second.LengthOfStay)
	}
	if second.CostPerDay != 1200 {
		t.Fatalf("expected cost per day 1200 for same-day visit, got %f", second.CostPerDay)
	}
}

func TestRunClampsNegativeStay(t *testing.T) {
	admission := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	events := []models.PatientEvent{{
		PatientID:     1,
		AdmissionType: models.AdmissionInpatient,
		Department:    "Emergency",
		AdmissionDate: admission,
		DischargeDate: admission.AddDate(0, 0, -2),
		TreatmentCost: 500,
	}}

	result, err := Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Patients[0].LengthOfStay; got != 0 {
		t.Fatalf("expected clamped length of stay 0, got %d", got)
	}
}

func TestRunDropsMalformedRows(t *testing.T) {
	admission := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	events := []models.PatientEvent{
		{PatientID: 1, AdmissionType: models.AdmissionOPD, Department: "Neurology", AdmissionDate: admission, DischargeDate: admission},
		{PatientID: 2, Department: "Neurology", AdmissionDate: admission, DischargeDate: admission}, // no admission type
		{PatientID: 3, AdmissionType: models.AdmissionOPD, Department: "Neurology", DischargeDate: admission},
	}

	result, err := Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DroppedRows != 2 {
		t.Fatalf("expected 2 dropped rows, got %d", result.DroppedRows)
	}
	if len(result.Patients) != 1 {
		t.Fatalf("expected 1 surviving row, got %d", len(result.Patients))
	}
}

func TestRunFailsWhenNothingSurvives(t *testing.T) {
	_, err := Run([]models.PatientEvent{{PatientID: 0}})
	if err == nil {
		t.Fatal("expected data integrity error")
	}
	if !IsDataIntegrityError(err) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
}

func TestKPIRangesOnGeneratedData(t *testing.T) {
	events, err := generator.Generate(300, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rates := map[string]float64{
		"occupancy":    result.KPIs.OccupancyRate,
		"icu":          result.KPIs.ICURate,
		"readmission":  result.KPIs.ReadmissionRate,
		"mortality":    result.KPIs.MortalityRate,
		"complication": result.KPIs.ComplicationRate,
		"opd_share":    result.KPIs.OPDShare,
	}
	for name, value := range rates {
		if value < 0 || value > 1 {
			t.Fatalf("%s rate out of range: %f", name, value)
		}
	}
	for _, p := range result.Patients {
		if p.LengthOfStay < 0 {
			t.Fatalf("negative length of stay for patient %d", p.PatientID)
		}
	}
	if len(result.Departments) == 0 || len(result.Weekly) == 0 {
		t.Fatal("expected department and weekly summaries")
	}
	for _, d := range result.Departments {
		if d.ReadmissionRate < 0 || d.ReadmissionRate > 1 || d.ICURate < 0 || d.ICURate > 1 {
			t.Fatalf("department %s rates out of range", d.Department)
		}
	}
}

func TestZeroCountRatesAreZero(t *testing.T) {
	admission := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	events := []models.PatientEvent{{
		PatientID:     1,
		AdmissionType: models.AdmissionOPD,
		Department:    "Oncology",
		AdmissionDate: admission,
		DischargeDate: admission,
	}}

	result, err := Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.KPIs.AvgLengthOfStay != 0 {
		t.Fatalf("expected zero average stay with no inpatients, got %f", result.KPIs.AvgLengthOfStay)
	}
	if result.KPIs.ICURate != 0 || result.KPIs.ReadmissionRate != 0 {
		t.Fatal("expected zero rates with no matching rows")
	}
}
