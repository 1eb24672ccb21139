package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/central-hospital/insights-platform/pkg/common/logger"
	"github.com/central-hospital/insights-platform/pkg/common/models"
	"github.com/central-hospital/insights-platform/pkg/observability/metrics"
)

// Service serves one artifact snapshot over HTTP. Every endpoint is a
// read; there is no write surface.
type Service struct {
	snapshot  *Snapshot
	threshold float64
	cache     *redis.Client
	cacheTTL  time.Duration
}

func NewService(snapshot *Snapshot, threshold float64) *Service {
	return &Service{snapshot: snapshot, threshold: threshold}
}

// WithCache enables Redis caching of filtered prediction responses.
func (s *Service) WithCache(client *redis.Client, ttl time.Duration) *Service {
	s.cache = client
	s.cacheTTL = ttl
	return s
}

func (s *Service) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/v1/kpis", s.handleKPIs).Methods("GET")
	router.HandleFunc("/api/v1/departments", s.handleDepartments).Methods("GET")
	router.HandleFunc("/api/v1/weekly", s.handleWeekly).Methods("GET")
	router.HandleFunc("/api/v1/model/metrics", s.handleModelMetrics).Methods("GET")
	router.HandleFunc("/api/v1/predictions", s.handlePredictions).Methods("GET")
	router.HandleFunc("/metrics", s.handlePrometheus).Methods("GET")
	return router
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Service) handleKPIs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot.KPIs)
}

func (s *Service) handleDepartments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot.Departments)
}

func (s *Service) handleWeekly(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot.Weekly)
}

func (s *Service) handleModelMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot.Metrics)
}

type predictionsResponse struct {
	Threshold   float64                   `json:"threshold"`
	Total       int                       `json:"total"`
	Returned    int                       `json:"returned"`
	Predictions []models.PredictionRecord `json:"predictions"`
}

func (s *Service) handlePredictions(w http.ResponseWriter, r *http.Request) {
	metrics.DashboardQuery()

	threshold := s.threshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			http.Error(w, "threshold must be a number in [0,1]", http.StatusBadRequest)
			return
		}
		threshold = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	filterExpr := r.URL.Query().Get("filter")
	clauses, err := ParseFilter(filterExpr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cacheKey := fmt.Sprintf("dashboard:predictions:%.4f:%d:%s", threshold, limit, filterExpr)
	if cached, ok := s.cacheGet(r.Context(), cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "hit")
		w.Write(cached)
		return
	}

	matched := make([]models.PredictionRecord, 0)
	for _, p := range s.snapshot.HighRisk(threshold) {
		if !Matches(p, clauses) {
			continue
		}
		matched = append(matched, p)
		if limit > 0 && len(matched) == limit {
			break
		}
	}

	response := predictionsResponse{
		Threshold:   threshold,
		Total:       len(s.snapshot.Predictions),
		Returned:    len(matched),
		Predictions: matched,
	}

	body, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	s.cacheSet(r.Context(), cacheKey, body)

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Service) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w)
}

func (s *Service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	body, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Warn("Dashboard cache read failed")
		}
		return nil, false
	}
	return body, true
}

func (s *Service) cacheSet(ctx context.Context, key string, body []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, body, s.cacheTTL).Err(); err != nil {
		logger.Log.WithError(err).Warn("Dashboard cache write failed")
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}
