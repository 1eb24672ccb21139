package dashboard

import (
	"sort"

	"github.com/central-hospital/insights-platform/pkg/artifacts"
	"github.com/central-hospital/insights-platform/pkg/common/models"
)

// Snapshot is the dashboard's read-only view of one pipeline run's
// artifacts. Loaded once at startup; the dashboard never mutates it.
type Snapshot struct {
	KPIs        models.KPISummary
	Departments []models.DepartmentSummary
	Weekly      []models.WeeklySummary
	Metrics     models.ModelMetrics
	Predictions []models.PredictionRecord
}

// LoadSnapshot reads every dashboard-facing artifact from the store.
// Predictions are ordered by descending predicted probability so the
// high-risk listing is a prefix scan.
func LoadSnapshot(store *artifacts.Store) (*Snapshot, error) {
	kpis, err := store.ReadKPIs()
	if err != nil {
		return nil, err
	}
	departments, err := store.ReadDepartmentSummary()
	if err != nil {
		return nil, err
	}
	weekly, err := store.ReadWeeklySummary()
	if err != nil {
		return nil, err
	}
	metrics, err := store.ReadModelMetrics()
	if err != nil {
		return nil, err
	}
	predictions, err := store.ReadPredictions()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		if predictions[i].PredictedReadmissionProb != predictions[j].PredictedReadmissionProb {
			return predictions[i].PredictedReadmissionProb > predictions[j].PredictedReadmissionProb
		}
		return predictions[i].PatientID < predictions[j].PatientID
	})

	return &Snapshot{
		KPIs:        kpis,
		Departments: departments,
		Weekly:      weekly,
		Metrics:     metrics,
		Predictions: predictions,
	}, nil
}

// HighRisk returns the predictions at or above threshold, preserving the
// snapshot's descending probability order.
func (s *Snapshot) HighRisk(threshold float64) []models.PredictionRecord {
	out := make([]models.PredictionRecord, 0)
	for _, p := range s.Predictions {
		if p.PredictedReadmissionProb < threshold {
			break
		}
		out = append(out, p)
	}
	return out
}
