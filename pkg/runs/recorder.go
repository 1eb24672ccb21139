package runs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/central-hospital/insights-platform/pkg/common/models"
)

// Recorder ties the run repository and rollup writer together behind the
// runner's registry hooks.
type Recorder struct {
	repo    *Repository
	rollups *RollupWriter
}

func NewRecorder(db *gorm.DB) (*Recorder, error) {
	repo := NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		return nil, err
	}
	return &Recorder{repo: repo, rollups: NewRollupWriter(db)}, nil
}

func (r *Recorder) RunCreated(ctx context.Context, run models.PipelineRun) error {
	now := time.Now().UTC()
	row := &RunModel{
		ID:          run.ID,
		Seed:        run.Seed,
		RecordCount: run.RecordCount,
		ModelType:   run.ModelType,
		Status:      models.RunQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.repo.Create(ctx, row); err != nil {
		return err
	}
	return r.repo.MarkRunning(ctx, run.ID)
}

func (r *Recorder) RunCompleted(ctx context.Context, runID uuid.UUID, metrics map[string]interface{}, artifactDir string, departments []models.DepartmentSummary, weekly []models.WeeklySummary) error {
	if err := r.repo.MarkCompleted(ctx, runID, metrics, artifactDir); err != nil {
		return err
	}
	if err := r.rollups.WriteDepartments(ctx, runID, departments); err != nil {
		return err
	}
	return r.rollups.WriteWeekly(ctx, runID, weekly)
}

func (r *Recorder) RunFailed(ctx context.Context, runID uuid.UUID, stage, message string) error {
	return r.repo.MarkFailed(ctx, runID, stage, message)
}

func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	rows, err := r.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	results := make([]models.PipelineRun, 0, len(rows))
	for i := range rows {
		results = append(results, rows[i].ToDomain())
	}
	return results, nil
}
