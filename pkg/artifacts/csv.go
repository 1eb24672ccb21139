package artifacts

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/central-hospital/insights-platform/pkg/common/models"
)

const dateLayout = "2006-01-02"

var rawHeader = []string{
	"patient_id", "admission_type", "department", "treatment_category",
	"age", "gender", "admission_date", "discharge_date", "length_of_stay",
	"icu_flag", "complication_flag", "mortality_flag", "readmitted",
	"treatment_cost", "lab_score", "vital_risk_score", "risk_score",
	"note_text", "opd_visit",
}

var processedExtra = []string{"admission_week", "week_start", "is_inpatient", "cost_per_day"}

func rawRow(ev models.PatientEvent) []string {
	return []string{
		strconv.Itoa(ev.PatientID),
		ev.AdmissionType,
		ev.Department,
		ev.TreatmentCategory,
		strconv.Itoa(ev.Age),
		ev.Gender,
		ev.AdmissionDate.Format(dateLayout),
		ev.DischargeDate.Format(dateLayout),
		strconv.Itoa(ev.LengthOfStay),
		flag(ev.ICUFlag),
		flag(ev.ComplicationFlag),
		flag(ev.MortalityFlag),
		flag(ev.Readmitted),
		strconv.FormatFloat(ev.TreatmentCost, 'f', 2, 64),
		strconv.FormatFloat(ev.LabScore, 'f', 3, 64),
		strconv.FormatFloat(ev.VitalRiskScore, 'f', 3, 64),
		strconv.FormatFloat(ev.RiskScore, 'f', 3, 64),
		ev.NoteText,
		flag(ev.OPDVisit),
	}
}

func (s *Store) WriteRawEvents(events []models.PatientEvent) error {
	return writeAtomic(s.RawEventsPath(), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(rawHeader); err != nil {
			return err
		}
		for _, ev := range events {
			if err := cw.Write(rawRow(ev)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ReadRawEvents loads a previously generated raw table. Rows with
// unparsable numbers or timestamps are dropped and counted, matching the
// preprocessor's recoverable-damage policy.
func (s *Store) ReadRawEvents() ([]models.PatientEvent, int, error) {
	file, err := os.Open(s.RawEventsPath())
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReaderSize(file, 64*1024))
	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[name] = i
	}
	for _, required := range rawHeader {
		if _, ok := colIdx[required]; !ok {
			return nil, 0, fmt.Errorf("raw table missing column %s", required)
		}
	}

	var events []models.PatientEvent
	dropped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			dropped++
			continue
		}
		ev, ok := parseRawRow(row, colIdx)
		if !ok {
			dropped++
			continue
		}
		events = append(events, ev)
	}
	return events, dropped, nil
}

func parseRawRow(row []string, colIdx map[string]int) (models.PatientEvent, bool) {
	get := func(name string) string {
		idx := colIdx[name]
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	patientID, err := strconv.Atoi(get("patient_id"))
	if err != nil {
		return models.PatientEvent{}, false
	}
	age, err := strconv.Atoi(get("age"))
	if err != nil {
		return models.PatientEvent{}, false
	}
	admission, err := time.Parse(dateLayout, get("admission_date"))
	if err != nil {
		return models.PatientEvent{}, false
	}
	discharge, err := time.Parse(dateLayout, get("discharge_date"))
	if err != nil {
		return models.PatientEvent{}, false
	}
	los, err := strconv.Atoi(get("length_of_stay"))
	if err != nil {
		return models.PatientEvent{}, false
	}
	cost, err := strconv.ParseFloat(get("treatment_cost"), 64)
	if err != nil {
		return models.PatientEvent{}, false
	}
	lab, err := strconv.ParseFloat(get("lab_score"), 64)
	if err != nil {
		return models.PatientEvent{}, false
	}
	vital, err := strconv.ParseFloat(get("vital_risk_score"), 64)
	if err != nil {
		return models.PatientEvent{}, false
	}
	risk, err := strconv.ParseFloat(get("risk_score"), 64)
	if err != nil {
		return models.PatientEvent{}, false
	}

	return models.PatientEvent{
		PatientID:         patientID,
		AdmissionType:     get("admission_type"),
		Department:        get("department"),
		TreatmentCategory: get("treatment_category"),
		Age:               age,
		Gender:            get("gender"),
		AdmissionDate:     admission,
		DischargeDate:     discharge,
		LengthOfStay:      los,
		ICUFlag:           get("icu_flag") == "1",
		ComplicationFlag:  get("complication_flag") == "1",
		MortalityFlag:     get("mortality_flag") == "1",
		Readmitted:        get("readmitted") == "1",
		TreatmentCost:     cost,
		LabScore:          lab,
		VitalRiskScore:    vital,
		RiskScore:         risk,
		NoteText:          get("note_text"),
		OPDVisit:          get("opd_visit") == "1",
	}, true
}

func (s *Store) WriteProcessed(patients []models.ProcessedPatient) error {
	header := append(append([]string{}, rawHeader...), processedExtra...)
	return writeAtomic(s.ProcessedPath(), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, p := range patients {
			row := append(rawRow(p.PatientEvent),
				p.AdmissionWeek,
				p.WeekStart,
				flag(p.IsInpatient),
				strconv.FormatFloat(p.CostPerDay, 'f', 2, 64),
			)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func (s *Store) WriteDepartmentSummary(summaries []models.DepartmentSummary) error {
	return writeAtomic(s.DepartmentSummaryPath(), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"department", "admissions", "avg_length_of_stay", "readmission_rate", "avg_treatment_cost", "icu_rate"}); err != nil {
			return err
		}
		for _, d := range summaries {
			row := []string{
				d.Department,
				strconv.Itoa(d.Admissions),
				strconv.FormatFloat(d.AvgLengthOfStay, 'f', 3, 64),
				strconv.FormatFloat(d.ReadmissionRate, 'f', 3, 64),
				strconv.FormatFloat(d.AvgTreatmentCost, 'f', 3, 64),
				strconv.FormatFloat(d.ICURate, 'f', 3, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func (s *Store) ReadDepartmentSummary() ([]models.DepartmentSummary, error) {
	rows, colIdx, err := readTable(s.DepartmentSummaryPath())
	if err != nil {
		return nil, err
	}
	summaries := make([]models.DepartmentSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, models.DepartmentSummary{
			Department:       row[colIdx["department"]],
			Admissions:       atoi(row[colIdx["admissions"]]),
			AvgLengthOfStay:  atof(row[colIdx["avg_length_of_stay"]]),
			ReadmissionRate:  atof(row[colIdx["readmission_rate"]]),
			AvgTreatmentCost: atof(row[colIdx["avg_treatment_cost"]]),
			ICURate:          atof(row[colIdx["icu_rate"]]),
		})
	}
	return summaries, nil
}

func (s *Store) WriteWeeklySummary(summaries []models.WeeklySummary) error {
	return writeAtomic(s.WeeklySummaryPath(), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"admission_week", "week_start", "admissions", "avg_treatment_cost"}); err != nil {
			return err
		}
		for _, wk := range summaries {
			row := []string{
				wk.AdmissionWeek,
				wk.WeekStart,
				strconv.Itoa(wk.Admissions),
				strconv.FormatFloat(wk.AvgTreatmentCost, 'f', 2, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func (s *Store) ReadWeeklySummary() ([]models.WeeklySummary, error) {
	rows, colIdx, err := readTable(s.WeeklySummaryPath())
	if err != nil {
		return nil, err
	}
	summaries := make([]models.WeeklySummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, models.WeeklySummary{
			AdmissionWeek:    row[colIdx["admission_week"]],
			WeekStart:        row[colIdx["week_start"]],
			Admissions:       atoi(row[colIdx["admissions"]]),
			AvgTreatmentCost: atof(row[colIdx["avg_treatment_cost"]]),
		})
	}
	return summaries, nil
}

func (s *Store) WritePredictions(predictions []models.PredictionRecord) error {
	return writeAtomic(s.PredictionsPath(), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"patient_id", "department", "length_of_stay", "readmitted", "predicted_readmission_prob", "predicted_readmission_class"}); err != nil {
			return err
		}
		for _, p := range predictions {
			row := []string{
				strconv.Itoa(p.PatientID),
				p.Department,
				strconv.Itoa(p.LengthOfStay),
				flag(p.Readmitted),
				strconv.FormatFloat(p.PredictedReadmissionProb, 'f', 6, 64),
				strconv.Itoa(p.PredictedClass),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func (s *Store) ReadPredictions() ([]models.PredictionRecord, error) {
	rows, colIdx, err := readTable(s.PredictionsPath())
	if err != nil {
		return nil, err
	}
	predictions := make([]models.PredictionRecord, 0, len(rows))
	for _, row := range rows {
		predictions = append(predictions, models.PredictionRecord{
			PatientID:                atoi(row[colIdx["patient_id"]]),
			Department:               row[colIdx["department"]],
			LengthOfStay:             atoi(row[colIdx["length_of_stay"]]),
			Readmitted:               row[colIdx["readmitted"]] == "1",
			PredictedReadmissionProb: atof(row[colIdx["predicted_readmission_prob"]]),
			PredictedClass:           atoi(row[colIdx["predicted_readmission_class"]]),
		})
	}
	return predictions, nil
}

func (s *Store) WriteKPIs(kpis models.KPISummary) error {
	return writeJSON(s.KPIPath(), kpis)
}

func (s *Store) ReadKPIs() (models.KPISummary, error) {
	var kpis models.KPISummary
	err := readJSON(s.KPIPath(), &kpis)
	return kpis, err
}

func (s *Store) WriteModelMetrics(metrics models.ModelMetrics) error {
	return writeJSON(s.ModelMetricsPath(), metrics)
}

func (s *Store) ReadModelMetrics() (models.ModelMetrics, error) {
	var metrics models.ModelMetrics
	err := readJSON(s.ModelMetricsPath(), &metrics)
	return metrics, err
}

func (s *Store) WriteModelArtifact(artifact interface{}) error {
	return writeJSON(s.ModelArtifactPath(), artifact)
}

func readTable(path string) ([][]string, map[string]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[name] = i
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return rows, colIdx, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
