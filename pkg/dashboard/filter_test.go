package dashboard

import (
	"testing"

	"github.com/central-hospital/insights-platform/pkg/common/models"
)

func TestParseFilterClauses(t *testing.T) {
	clauses, err := ParseFilter("department = Cardiology, probability >= 0.7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(clauses))
	}
	if clauses[0].Field != "department" || clauses[0].Operator != "=" || clauses[0].Value != "cardiology" {
		t.Fatalf("unexpected first clause: %+v", clauses[0])
	}
	if clauses[1].Field != "probability" || clauses[1].Operator != ">=" {
		t.Fatalf("unexpected second clause: %+v", clauses[1])
	}
}

func TestParseFilterEmpty(t *testing.T) {
	clauses, err := ParseFilter("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clauses != nil {
		t.Fatalf("expected nil clauses, got %v", clauses)
	}
}

func TestParseFilterRejectsUnknownField(t *testing.T) {
	if _, err := ParseFilter("ward = ICU"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseFilterRejectsGarbage(t *testing.T) {
	if _, err := ParseFilter("hello world"); err == nil {
		t.Fatal("expected error for clause-free input")
	}
}

func TestMatches(t *testing.T) {
	record := models.PredictionRecord{
		PatientID:                1007,
		Department:               "Cardiology",
		LengthOfStay:             6,
		Readmitted:               true,
		PredictedReadmissionProb: 0.82,
		PredictedClass:           1,
	}

	cases := []struct {
		filter string
		want   bool
	}{
		{"department = Cardiology", true},
		{"department != Cardiology", false},
		{"department = Oncology", false},
		{"probability > 0.8", true},
		{"probability < 0.8", false},
		{"length_of_stay >= 6", true},
		{"readmitted = true", true},
		{"predicted_class = 1", true},
		{"department = Cardiology, probability > 0.9", false},
		{"patient_id = 1007", true},
	}
	for _, tc := range cases {
		clauses, err := ParseFilter(tc.filter)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.filter, err)
		}
		if got := Matches(record, clauses); got != tc.want {
			t.Fatalf("filter %q: expected %v, got %v", tc.filter, tc.want, got)
		}
	}
}
