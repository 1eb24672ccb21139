package artifacts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/central-hospital/insights-platform/pkg/common/models"
	"github.com/central-hospital/insights-platform/pkg/generator"
)

func TestRawEventsRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	events, err := generator.Generate(40, 11)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if err := store.WriteRawEvents(events); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	restored, dropped, err := store.ReadRawEvents()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("expected no dropped rows, got %d", dropped)
	}
	if len(restored) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(restored))
	}
	for i := range events {
		if restored[i].PatientID != events[i].PatientID {
			t.Fatalf("patient id mismatch at row %d", i)
		}
		if restored[i].Department != events[i].Department {
			t.Fatalf("department mismatch at row %d", i)
		}
		if !restored[i].AdmissionDate.Equal(events[i].AdmissionDate) {
			t.Fatalf("admission date mismatch at row %d", i)
		}
		if restored[i].TreatmentCost != events[i].TreatmentCost {
			t.Fatalf("treatment cost mismatch at row %d", i)
		}
	}
}

func TestRawWriteDeterministic(t *testing.T) {
	events, err := generator.Generate(30, 42)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	first := NewStore(t.TempDir())
	second := NewStore(t.TempDir())
	if err := first.WriteRawEvents(events); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := second.WriteRawEvents(events); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	a, err := os.ReadFile(first.RawEventsPath())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	b, err := os.ReadFile(second.RawEventsPath())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("same events produced different raw artifacts")
	}
}

func TestReadRawEventsDropsBadRows(t *testing.T) {
	store := NewStore(t.TempDir())
	events, err := generator.Generate(5, 1)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if err := store.WriteRawEvents(events); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// Corrupt one row's admission date.
	content, err := os.ReadFile(store.RawEventsPath())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	corrupted := bytes.Replace(content, []byte("2025-"), []byte("not-a-date-"), 1)
	if err := os.WriteFile(store.RawEventsPath(), corrupted, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	restored, dropped, err := store.ReadRawEvents()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("expected 1 dropped row, got %d", dropped)
	}
	if len(restored) != 4 {
		t.Fatalf("expected 4 surviving rows, got %d", len(restored))
	}
}

func TestKPIJSONRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	kpis := models.KPISummary{
		OccupancyRate:    0.6,
		ICURate:          0.22,
		ReadmissionRate:  0.19,
		AvgTreatmentCost: 9876.54,
	}
	if err := store.WriteKPIs(kpis); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	restored, err := store.ReadKPIs()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if restored != kpis {
		t.Fatalf("kpi round trip mismatch: %+v vs %+v", restored, kpis)
	}
}

func TestPredictionsRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	predictions := []models.PredictionRecord{
		{PatientID: 1, Department: "Cardiology", LengthOfStay: 3, Readmitted: true, PredictedReadmissionProb: 0.81, PredictedClass: 1},
		{PatientID: 2, Department: "Oncology", LengthOfStay: 1, PredictedReadmissionProb: 0.12},
	}
	if err := store.WritePredictions(predictions); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	restored, err := store.ReadPredictions()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(restored) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(restored))
	}
	if restored[0].PredictedClass != 1 || restored[1].PredictedClass != 0 {
		t.Fatal("classes did not survive round trip")
	}
	if restored[0].PredictedReadmissionProb != 0.81 {
		t.Fatalf("probability mismatch: %f", restored[0].PredictedReadmissionProb)
	}
}

func TestSummariesRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	depts := []models.DepartmentSummary{
		{Department: "Emergency", Admissions: 40, AvgLengthOfStay: 2.5, ReadmissionRate: 0.2, AvgTreatmentCost: 7000, ICURate: 0.3},
	}
	weekly := []models.WeeklySummary{
		{AdmissionWeek: "2025-W07", WeekStart: "2025-02-10", Admissions: 12, AvgTreatmentCost: 8000.25},
	}
	if err := store.WriteDepartmentSummary(depts); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.WriteWeeklySummary(weekly); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	restoredDepts, err := store.ReadDepartmentSummary()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(restoredDepts) != 1 || restoredDepts[0].Department != "Emergency" {
		t.Fatalf("unexpected department summary: %+v", restoredDepts)
	}

	restoredWeekly, err := store.ReadWeeklySummary()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(restoredWeekly) != 1 || restoredWeekly[0].AdmissionWeek != "2025-W07" {
		t.Fatalf("unexpected weekly summary: %+v", restoredWeekly)
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.WriteKPIs(models.KPISummary{}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "processed"))
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "kpi_summary.json" {
			t.Fatalf("unexpected leftover file %s", entry.Name())
		}
	}
}

func TestWriteErrorType(t *testing.T) {
	// Point the store at a path whose parent is a file, forcing MkdirAll to fail.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "raw")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	store := NewStore(dir)
	err := store.WriteRawEvents(nil)
	if err == nil {
		t.Fatal("expected write error")
	}
	if !IsWriteError(err) {
		t.Fatalf("expected WriteError, got %v", err)
	}
}
