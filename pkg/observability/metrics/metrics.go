package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sync/atomic"
)

var (
	runsCompleted    atomic.Int64
	runsFailed       atomic.Int64
	rawRows          atomic.Int64
	droppedRows      atomic.Int64
	predictionRows   atomic.Int64
	lastAUCMillis    atomic.Int64
	dashboardQueries atomic.Int64
)

func Init() {}

// ObserveRun records the latest run's table sizes and held-out AUC.
func ObserveRun(raw, dropped, predictions int, rocAUC float64) {
	rawRows.Store(int64(raw))
	droppedRows.Store(int64(dropped))
	predictionRows.Store(int64(predictions))
	lastAUCMillis.Store(int64(math.Round(rocAUC * 1000)))
}

func RunCompleted() {
	runsCompleted.Add(1)
}

func RunFailed() {
	runsFailed.Add(1)
}

func DashboardQuery() {
	dashboardQueries.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP insights_pipeline_runs_completed_total Number of pipeline runs completed by this process.\n")
	fmt.Fprintf(w, "# TYPE insights_pipeline_runs_completed_total counter\n")
	fmt.Fprintf(w, "insights_pipeline_runs_completed_total %d\n", runsCompleted.Load())

	fmt.Fprintf(w, "# HELP insights_pipeline_runs_failed_total Number of pipeline runs failed by this process.\n")
	fmt.Fprintf(w, "# TYPE insights_pipeline_runs_failed_total counter\n")
	fmt.Fprintf(w, "insights_pipeline_runs_failed_total %d\n", runsFailed.Load())

	fmt.Fprintf(w, "# HELP insights_pipeline_raw_rows Rows in the latest raw patient table.\n")
	fmt.Fprintf(w, "# TYPE insights_pipeline_raw_rows gauge\n")
	fmt.Fprintf(w, "insights_pipeline_raw_rows %d\n", rawRows.Load())

	fmt.Fprintf(w, "# HELP insights_pipeline_dropped_rows Rows dropped during the latest preprocessing pass.\n")
	fmt.Fprintf(w, "# TYPE insights_pipeline_dropped_rows gauge\n")
	fmt.Fprintf(w, "insights_pipeline_dropped_rows %d\n", droppedRows.Load())

	fmt.Fprintf(w, "# HELP insights_pipeline_prediction_rows Rows in the latest predictions table.\n")
	fmt.Fprintf(w, "# TYPE insights_pipeline_prediction_rows gauge\n")
	fmt.Fprintf(w, "insights_pipeline_prediction_rows %d\n", predictionRows.Load())

	fmt.Fprintf(w, "# HELP insights_model_roc_auc_millis Latest held-out ROC AUC, scaled by 1000.\n")
	fmt.Fprintf(w, "# TYPE insights_model_roc_auc_millis gauge\n")
	fmt.Fprintf(w, "insights_model_roc_auc_millis %d\n", lastAUCMillis.Load())

	fmt.Fprintf(w, "# HELP insights_dashboard_queries_total Prediction queries served by the dashboard.\n")
	fmt.Fprintf(w, "# TYPE insights_dashboard_queries_total counter\n")
	fmt.Fprintf(w, "insights_dashboard_queries_total %d\n", dashboardQueries.Load())
}
