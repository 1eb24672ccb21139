package generator

import (
	"reflect"
	"testing"
)

func TestGenerateCountAndIDs(t *testing.T) {
	events, err := Generate(120, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 120 {
		t.Fatalf("expected 120 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.PatientID != i+1 {
			t.Fatalf("expected sequential patient ids, got %d at index %d", ev.PatientID, i)
		}
		if ev.LengthOfStay < 1 {
			t.Fatalf("length of stay below 1 for patient %d", ev.PatientID)
		}
		if ev.DischargeDate.Before(ev.AdmissionDate) {
			t.Fatalf("discharge before admission for patient %d", ev.PatientID)
		}
		if ev.TreatmentCost < 800 {
			t.Fatalf("treatment cost below floor for patient %d: %f", ev.PatientID, ev.TreatmentCost)
		}
		if ev.RiskScore < 0 || ev.RiskScore > 1 {
			t.Fatalf("risk score out of range for patient %d: %f", ev.PatientID, ev.RiskScore)
		}
		if ev.OPDVisit == (ev.AdmissionType == "Inpatient") {
			t.Fatalf("opd flag inconsistent with admission type for patient %d", ev.PatientID)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	first, err := Generate(50, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Generate(50, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same seed produced different event sequences")
	}

	other, err := Generate(50, 43)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reflect.DeepEqual(first, other) {
		t.Fatal("different seeds produced identical event sequences")
	}
}

func TestGenerateRejectsBadCount(t *testing.T) {
	for _, count := range []int{0, -1, -500} {
		if _, err := Generate(count, 1); err == nil {
			t.Fatalf("expected error for count %d", count)
		}
	}
}

func TestGenerateNoteMentionsDepartment(t *testing.T) {
	events, err := Generate(10, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ev := range events {
		if ev.NoteText == "" {
			t.Fatalf("empty note for patient %d", ev.PatientID)
		}
	}
}
