package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteError marks a filesystem failure while persisting an artifact.
type WriteError struct {
	Path string
	Err  error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("failed to write artifact %s: %v", e.Path, e.Err)
}

func (e WriteError) Unwrap() error {
	return e.Err
}

func IsWriteError(err error) bool {
	var we WriteError
	return errors.As(err, &we)
}

// Store lays out one run's flat-file artifacts under a data directory:
//
//	raw/patient_events.csv
//	processed/processed_patients.csv
//	processed/kpi_summary.json
//	processed/department_summary.csv
//	processed/weekly_summary.csv
//	processed/predictions.csv
//	processed/model_metrics.json
//	processed/models/readmission_model.json
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) RawEventsPath() string {
	return filepath.Join(s.dir, "raw", "patient_events.csv")
}

func (s *Store) ProcessedPath() string {
	return filepath.Join(s.dir, "processed", "processed_patients.csv")
}

func (s *Store) KPIPath() string {
	return filepath.Join(s.dir, "processed", "kpi_summary.json")
}

func (s *Store) DepartmentSummaryPath() string {
	return filepath.Join(s.dir, "processed", "department_summary.csv")
}

func (s *Store) WeeklySummaryPath() string {
	return filepath.Join(s.dir, "processed", "weekly_summary.csv")
}

func (s *Store) PredictionsPath() string {
	return filepath.Join(s.dir, "processed", "predictions.csv")
}

func (s *Store) ModelMetricsPath() string {
	return filepath.Join(s.dir, "processed", "model_metrics.json")
}

func (s *Store) ModelArtifactPath() string {
	return filepath.Join(s.dir, "processed", "models", "readmission_model.json")
}

// writeAtomic writes through a temp file in the target directory and
// renames into place, so readers never observe a partial artifact.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return WriteError{Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return WriteError{Path: path, Err: err}
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	return writeAtomic(path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	})
}

func readJSON(path string, v interface{}) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(content, v)
}
