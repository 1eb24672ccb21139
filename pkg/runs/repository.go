package runs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/central-hospital/insights-platform/pkg/common/models"
)

var ErrRunNotFound = errors.New("pipeline run not found")

// RunModel is the persistence row for one pipeline invocation.
type RunModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	Seed         int64             `gorm:"column:seed"`
	RecordCount  int               `gorm:"column:record_count"`
	ModelType    string            `gorm:"column:model_type"`
	Status       string            `gorm:"column:status"`
	Metrics      datatypes.JSONMap `gorm:"column:metrics"`
	ArtifactDir  string            `gorm:"column:artifact_dir"`
	ErrorMessage string            `gorm:"column:error_message"`
	FailedStage  string            `gorm:"column:failed_stage"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at"`
	StartedAt    *time.Time        `gorm:"column:started_at"`
	CompletedAt  *time.Time        `gorm:"column:completed_at"`
}

func (RunModel) TableName() string {
	return "pipeline_runs"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RunModel{}, &RollupModel{})
}

func (r *Repository) Create(ctx context.Context, run *RunModel) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *Repository) MarkRunning(ctx context.Context, runID uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"status":     models.RunRunning,
		"started_at": now,
		"updated_at": now,
	}).Error
}

func (r *Repository) MarkCompleted(ctx context.Context, runID uuid.UUID, metrics map[string]interface{}, artifactDir string) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       models.RunCompleted,
		"artifact_dir": artifactDir,
		"completed_at": now,
		"updated_at":   now,
	}
	if metrics != nil {
		updates["metrics"] = datatypes.JSONMap(metrics)
	}
	return r.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", runID).Updates(updates).Error
}

func (r *Repository) MarkFailed(ctx context.Context, runID uuid.UUID, stage, message string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"status":        models.RunFailed,
		"failed_stage":  stage,
		"error_message": message,
		"completed_at":  now,
		"updated_at":    now,
	}).Error
}

func (r *Repository) Get(ctx context.Context, runID uuid.UUID) (*RunModel, error) {
	var run RunModel
	result := r.db.WithContext(ctx).First(&run, "id = ?", runID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	return &run, result.Error
}

func (r *Repository) List(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunModel
	result := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&runs)
	return runs, result.Error
}

// ToDomain converts the persistence row to the shared run view.
func (run *RunModel) ToDomain() models.PipelineRun {
	result := models.PipelineRun{
		ID:           run.ID,
		Seed:         run.Seed,
		RecordCount:  run.RecordCount,
		ModelType:    run.ModelType,
		Status:       run.Status,
		ArtifactDir:  run.ArtifactDir,
		ErrorMessage: run.ErrorMessage,
		FailedStage:  run.FailedStage,
		CreatedAt:    run.CreatedAt,
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
	}
	if run.Metrics != nil {
		result.Metrics = map[string]interface{}(run.Metrics)
	}
	return result
}
