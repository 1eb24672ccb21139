package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/central-hospital/insights-platform/pkg/artifacts"
	"github.com/central-hospital/insights-platform/pkg/common/logger"
	"github.com/central-hospital/insights-platform/pkg/common/models"
	"github.com/central-hospital/insights-platform/pkg/features"
	"github.com/central-hospital/insights-platform/pkg/generator"
	"github.com/central-hospital/insights-platform/pkg/model"
	"github.com/central-hospital/insights-platform/pkg/observability/metrics"
	"github.com/central-hospital/insights-platform/pkg/preprocess"
)

// Stage names, reported on failure and in run events.
const (
	StageGenerate   = "generate"
	StagePreprocess = "preprocess"
	StageTrain      = "train"
)

// StageError wraps a stage failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e StageError) Unwrap() error {
	return e.Err
}

// FailedStage extracts the stage name from a runner error, or "".
func FailedStage(err error) string {
	var se StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// EventPublisher receives run lifecycle events. Nil disables publishing.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Registry records run state. Nil disables the registry.
type Registry interface {
	RunCreated(ctx context.Context, run models.PipelineRun) error
	RunCompleted(ctx context.Context, runID uuid.UUID, metrics map[string]interface{}, artifactDir string, departments []models.DepartmentSummary, weekly []models.WeeklySummary) error
	RunFailed(ctx context.Context, runID uuid.UUID, stage, message string) error
}

type Options struct {
	Records          int
	Seed             int64
	ModelType        string
	TestFraction     float64
	Threshold        float64
	MinPositives     int
	Vocabulary       features.Vocabulary
	ReuseExistingRaw bool
}

type Runner struct {
	store     *artifacts.Store
	opts      Options
	publisher EventPublisher
	registry  Registry
}

func NewRunner(store *artifacts.Store, opts Options) *Runner {
	if len(opts.Vocabulary.Groups) == 0 {
		opts.Vocabulary = features.DefaultVocabulary()
	}
	return &Runner{store: store, opts: opts}
}

func (r *Runner) WithPublisher(p EventPublisher) *Runner {
	r.publisher = p
	return r
}

func (r *Runner) WithRegistry(reg Registry) *Runner {
	r.registry = reg
	return r
}

// Summary is what a completed run reports back to the CLI.
type Summary struct {
	RunID        uuid.UUID
	RawRows      int
	DroppedRows  int
	KPIs         models.KPISummary
	Departments  []models.DepartmentSummary
	Weekly       []models.WeeklySummary
	ModelMetrics models.ModelMetrics
	Predictions  int
	ReusedRaw    bool
}

// Run executes generate, preprocess, and train strictly in order. Any
// stage failure aborts the run before downstream artifacts are touched.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.New()}

	if r.registry != nil {
		if err := r.registry.RunCreated(ctx, models.PipelineRun{
			ID:          summary.RunID,
			Seed:        r.opts.Seed,
			RecordCount: r.opts.Records,
			ModelType:   r.opts.ModelType,
			Status:      models.RunQueued,
		}); err != nil {
			logger.Log.WithError(err).Warn("Run registry unavailable")
		}
	}
	r.publish(ctx, "run_started", map[string]interface{}{
		"run_id":  summary.RunID.String(),
		"records": r.opts.Records,
		"seed":    r.opts.Seed,
	})

	events, err := r.generate(&summary)
	if err != nil {
		return summary, r.fail(ctx, summary.RunID, StageGenerate, err)
	}
	r.stageDone(ctx, summary.RunID, StageGenerate, map[string]interface{}{"rows": len(events)})

	result, err := preprocess.Run(events)
	if err != nil {
		return summary, r.fail(ctx, summary.RunID, StagePreprocess, err)
	}
	if err := r.writePreprocessed(result); err != nil {
		return summary, r.fail(ctx, summary.RunID, StagePreprocess, err)
	}
	summary.DroppedRows = result.DroppedRows
	summary.KPIs = result.KPIs
	summary.Departments = result.Departments
	summary.Weekly = result.Weekly
	r.stageDone(ctx, summary.RunID, StagePreprocess, map[string]interface{}{
		"rows":    len(result.Patients),
		"dropped": result.DroppedRows,
	})

	encoder := features.NewEncoder(r.opts.Vocabulary)
	output, err := model.Train(result.Patients, encoder, model.Config{
		ModelType:    r.opts.ModelType,
		TestFraction: r.opts.TestFraction,
		Threshold:    r.opts.Threshold,
		MinPositives: r.opts.MinPositives,
		Seed:         r.opts.Seed,
	})
	if err != nil {
		return summary, r.fail(ctx, summary.RunID, StageTrain, err)
	}
	if err := r.writeModelOutput(output); err != nil {
		return summary, r.fail(ctx, summary.RunID, StageTrain, err)
	}
	summary.ModelMetrics = output.Metrics
	summary.Predictions = len(output.Predictions)
	r.stageDone(ctx, summary.RunID, StageTrain, map[string]interface{}{
		"roc_auc":  output.Metrics.ROCAUC,
		"accuracy": output.Metrics.TestAccuracy,
	})

	metrics.ObserveRun(summary.RawRows, summary.DroppedRows, summary.Predictions, output.Metrics.ROCAUC)
	metrics.RunCompleted()

	if r.registry != nil {
		if err := r.registry.RunCompleted(ctx, summary.RunID, map[string]interface{}{
			"roc_auc":       output.Metrics.ROCAUC,
			"test_accuracy": output.Metrics.TestAccuracy,
			"raw_rows":      summary.RawRows,
			"dropped_rows":  summary.DroppedRows,
		}, r.store.Dir(), summary.Departments, summary.Weekly); err != nil {
			logger.Log.WithError(err).Warn("Failed to record completed run")
		}
	}
	r.publish(ctx, "run_completed", map[string]interface{}{
		"run_id":  summary.RunID.String(),
		"roc_auc": output.Metrics.ROCAUC,
	})

	logger.WithFields(map[string]interface{}{
		"run_id":       summary.RunID,
		"raw_rows":     summary.RawRows,
		"dropped_rows": summary.DroppedRows,
		"roc_auc":      output.Metrics.ROCAUC,
	}).Info("Pipeline completed")

	return summary, nil
}

func (r *Runner) generate(summary *Summary) ([]models.PatientEvent, error) {
	if r.opts.ReuseExistingRaw {
		if _, err := os.Stat(r.store.RawEventsPath()); err == nil {
			events, dropped, err := r.store.ReadRawEvents()
			if err != nil {
				return nil, err
			}
			if dropped > 0 {
				logger.WithStage(StageGenerate).WithField("dropped", dropped).Warn("Existing raw table had unreadable rows")
			}
			summary.RawRows = len(events)
			summary.ReusedRaw = true
			return events, nil
		}
	}

	events, err := generator.Generate(r.opts.Records, r.opts.Seed)
	if err != nil {
		return nil, err
	}
	if err := r.store.WriteRawEvents(events); err != nil {
		return nil, err
	}
	summary.RawRows = len(events)
	return events, nil
}

func (r *Runner) writePreprocessed(result preprocess.Result) error {
	if err := r.store.WriteProcessed(result.Patients); err != nil {
		return err
	}
	if err := r.store.WriteKPIs(result.KPIs); err != nil {
		return err
	}
	if err := r.store.WriteDepartmentSummary(result.Departments); err != nil {
		return err
	}
	return r.store.WriteWeeklySummary(result.Weekly)
}

func (r *Runner) writeModelOutput(output model.Output) error {
	if err := r.store.WritePredictions(output.Predictions); err != nil {
		return err
	}
	if err := r.store.WriteModelMetrics(output.Metrics); err != nil {
		return err
	}
	return r.store.WriteModelArtifact(output.Artifact)
}

func (r *Runner) fail(ctx context.Context, runID uuid.UUID, stage string, err error) error {
	metrics.RunFailed()
	if r.registry != nil {
		if regErr := r.registry.RunFailed(ctx, runID, stage, err.Error()); regErr != nil {
			logger.Log.WithError(regErr).Warn("Failed to record failed run")
		}
	}
	r.publish(ctx, "run_failed", map[string]interface{}{
		"run_id": runID.String(),
		"stage":  stage,
		"error":  err.Error(),
	})
	logger.WithStage(stage).WithError(err).Error("Pipeline stage failed")
	return StageError{Stage: stage, Err: err}
}

func (r *Runner) stageDone(ctx context.Context, runID uuid.UUID, stage string, data map[string]interface{}) {
	data["run_id"] = runID.String()
	data["stage"] = stage
	r.publish(ctx, "stage_completed", data)
}

func (r *Runner) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishEvent(ctx, eventType, "pipeline", data); err != nil {
		logger.Log.WithError(err).Warn("Failed to publish run event")
	}
}
