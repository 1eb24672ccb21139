package runs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/central-hospital/insights-platform/pkg/common/models"
)

// RollupModel stores one department or weekly aggregate row per run, so
// KPI history can be sliced across runs without re-reading flat files.
type RollupModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	RunID     uuid.UUID         `gorm:"column:run_id;index"`
	Dimension string            `gorm:"column:dimension"` // department or week
	Key       string            `gorm:"column:key"`
	Value     datatypes.JSONMap `gorm:"column:value"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}

func (RollupModel) TableName() string {
	return "kpi_rollups"
}

type RollupWriter struct {
	db *gorm.DB
}

func NewRollupWriter(db *gorm.DB) *RollupWriter {
	return &RollupWriter{db: db}
}

func (w *RollupWriter) WriteDepartments(ctx context.Context, runID uuid.UUID, summaries []models.DepartmentSummary) error {
	now := time.Now().UTC()
	rows := make([]RollupModel, 0, len(summaries))
	for _, d := range summaries {
		rows = append(rows, RollupModel{
			ID:        uuid.New(),
			RunID:     runID,
			Dimension: "department",
			Key:       d.Department,
			Value: datatypes.JSONMap{
				"admissions":         d.Admissions,
				"avg_length_of_stay": d.AvgLengthOfStay,
				"readmission_rate":   d.ReadmissionRate,
				"avg_treatment_cost": d.AvgTreatmentCost,
				"icu_rate":           d.ICURate,
			},
			CreatedAt: now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return w.db.WithContext(ctx).Create(&rows).Error
}

func (w *RollupWriter) WriteWeekly(ctx context.Context, runID uuid.UUID, summaries []models.WeeklySummary) error {
	now := time.Now().UTC()
	rows := make([]RollupModel, 0, len(summaries))
	for _, wk := range summaries {
		rows = append(rows, RollupModel{
			ID:        uuid.New(),
			RunID:     runID,
			Dimension: "week",
			Key:       wk.AdmissionWeek,
			Value: datatypes.JSONMap{
				"week_start":         wk.WeekStart,
				"admissions":         wk.Admissions,
				"avg_treatment_cost": wk.AvgTreatmentCost,
			},
			CreatedAt: now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return w.db.WithContext(ctx).Create(&rows).Error
}

func (w *RollupWriter) ForRun(ctx context.Context, runID uuid.UUID, dimension string) ([]RollupModel, error) {
	var rows []RollupModel
	tx := w.db.WithContext(ctx).Where("run_id = ?", runID)
	if dimension != "" {
		tx = tx.Where("dimension = ?", dimension)
	}
	err := tx.Order("key asc").Find(&rows).Error
	return rows, err
}
