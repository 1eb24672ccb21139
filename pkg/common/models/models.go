package models

import (
	"time"

	"github.com/google/uuid"
)

// Admission types emitted by the generator.
const (
	AdmissionInpatient = "Inpatient"
	AdmissionOPD       = "OPD"
)

// PatientEvent is one admission or OPD visit. Created by the generator,
// immutable afterwards.
type PatientEvent struct {
	PatientID         int       `json:"patient_id"`
	AdmissionType     string    `json:"admission_type"`
	Department        string    `json:"department"`
	TreatmentCategory string    `json:"treatment_category"`
	Age               int       `json:"age"`
	Gender            string    `json:"gender"`
	AdmissionDate     time.Time `json:"admission_date"`
	DischargeDate     time.Time `json:"discharge_date"`
	LengthOfStay      int       `json:"length_of_stay"`
	ICUFlag           bool      `json:"icu_flag"`
	ComplicationFlag  bool      `json:"complication_flag"`
	MortalityFlag     bool      `json:"mortality_flag"`
	Readmitted        bool      `json:"readmitted"`
	TreatmentCost     float64   `json:"treatment_cost"`
	LabScore          float64   `json:"lab_score"`
	VitalRiskScore    float64   `json:"vital_risk_score"`
	RiskScore         float64   `json:"risk_score"`
	NoteText          string    `json:"note_text"`
	OPDVisit          bool      `json:"opd_visit"`
}

// ProcessedPatient is a PatientEvent plus the columns derived during
// preprocessing. One ProcessedPatient per surviving PatientEvent.
type ProcessedPatient struct {
	PatientEvent

	AdmissionWeek string  `json:"admission_week"` // ISO week key, e.g. 2025-W07
	WeekStart     string  `json:"week_start"`     // Monday of the admission week
	IsInpatient   bool    `json:"is_inpatient"`
	CostPerDay    float64 `json:"cost_per_day"`
}

// KPISummary maps KPI names to scalar values, computed once per run.
type KPISummary struct {
	OccupancyRate    float64 `json:"occupancy_rate"`
	ICURate          float64 `json:"icu_rate"`
	AvgLengthOfStay  float64 `json:"avg_length_of_stay"`
	ReadmissionRate  float64 `json:"readmission_rate"`
	MortalityRate    float64 `json:"mortality_rate"`
	ComplicationRate float64 `json:"complication_rate"`
	AvgTreatmentCost float64 `json:"avg_treatment_cost"`
	OPDShare         float64 `json:"opd_share"`
}

// DepartmentSummary aggregates one department's encounters.
type DepartmentSummary struct {
	Department       string  `json:"department"`
	Admissions       int     `json:"admissions"`
	AvgLengthOfStay  float64 `json:"avg_length_of_stay"`
	ReadmissionRate  float64 `json:"readmission_rate"`
	AvgTreatmentCost float64 `json:"avg_treatment_cost"`
	ICURate          float64 `json:"icu_rate"`
}

// WeeklySummary aggregates one ISO admission week.
type WeeklySummary struct {
	AdmissionWeek    string  `json:"admission_week"`
	WeekStart        string  `json:"week_start"`
	Admissions       int     `json:"admissions"`
	AvgTreatmentCost float64 `json:"avg_treatment_cost"`
}

// PredictionRecord carries the per-patient model output.
type PredictionRecord struct {
	PatientID                int     `json:"patient_id"`
	Department               string  `json:"department"`
	LengthOfStay             int     `json:"length_of_stay"`
	Readmitted               bool    `json:"readmitted"`
	PredictedReadmissionProb float64 `json:"predicted_readmission_prob"`
	PredictedClass           int     `json:"predicted_readmission_class"`
}

// ModelMetrics are computed on the held-out split.
type ModelMetrics struct {
	ROCAUC       float64 `json:"roc_auc"`
	TestAccuracy float64 `json:"test_accuracy"`
	TrainRows    int     `json:"train_rows"`
	TestRows     int     `json:"test_rows"`
	PositiveRows int     `json:"positive_rows"`
	ModelType    string  `json:"model_type"`
}

// Run statuses for the pipeline run registry.
const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// PipelineRun is the registry view of one pipeline invocation.
type PipelineRun struct {
	ID           uuid.UUID              `json:"id"`
	Seed         int64                  `json:"seed"`
	RecordCount  int                    `json:"record_count"`
	ModelType    string                 `json:"model_type"`
	Status       string                 `json:"status"`
	Metrics      map[string]interface{} `json:"metrics,omitempty"`
	ArtifactDir  string                 `json:"artifact_dir,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	FailedStage  string                 `json:"failed_stage,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// Event is published to the run events topic at stage boundaries.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // run_started, stage_completed, run_completed, run_failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
