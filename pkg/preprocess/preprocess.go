package preprocess

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/central-hospital/insights-platform/pkg/common/logger"
	"github.com/central-hospital/insights-platform/pkg/common/models"
)

// DataIntegrityError reports that preprocessing could not produce a usable
// table. Individual malformed rows are dropped and counted, not fatal; the
// error is raised only when nothing survives.
type DataIntegrityError struct {
	Dropped int
	Total   int
}

func (e DataIntegrityError) Error() string {
	return fmt.Sprintf("no usable rows after preprocessing: %d of %d dropped", e.Dropped, e.Total)
}

func IsDataIntegrityError(err error) bool {
	var de DataIntegrityError
	return errors.As(err, &de)
}

// Result bundles the preprocessed table with the KPI artifacts.
type Result struct {
	Patients    []models.ProcessedPatient
	KPIs        models.KPISummary
	Departments []models.DepartmentSummary
	Weekly      []models.WeeklySummary
	DroppedRows int
}

// Run derives per-row columns and aggregates KPIs at global, department,
// and weekly granularity.
func Run(events []models.PatientEvent) (Result, error) {
	var result Result

	for _, ev := range events {
		if reason := validate(ev); reason != "" {
			result.DroppedRows++
			logger.WithFields(map[string]interface{}{
				"patient_id": ev.PatientID,
				"reason":     reason,
			}).Warn("Dropping malformed row")
			continue
		}
		result.Patients = append(result.Patients, derive(ev))
	}

	if len(result.Patients) == 0 {
		return Result{}, DataIntegrityError{Dropped: result.DroppedRows, Total: len(events)}
	}

	result.KPIs = computeKPIs(result.Patients)
	result.Departments = departmentSummaries(result.Patients)
	result.Weekly = weeklySummaries(result.Patients)

	if result.DroppedRows > 0 {
		logger.WithField("dropped_rows", result.DroppedRows).Warn("Preprocessing dropped rows")
	}

	return result, nil
}

func validate(ev models.PatientEvent) string {
	switch {
	case ev.PatientID <= 0:
		return "missing patient id"
	case ev.AdmissionType == "":
		return "missing admission type"
	case ev.Department == "":
		return "missing department"
	case ev.AdmissionDate.IsZero():
		return "unparsable admission date"
	case ev.DischargeDate.IsZero():
		return "unparsable discharge date"
	}
	return ""
}

func derive(ev models.PatientEvent) models.ProcessedPatient {
	los := int(ev.DischargeDate.Sub(ev.AdmissionDate).Hours() / 24)
	if los < 0 {
		los = 0
	}
	ev.LengthOfStay = los

	divisor := los
	if divisor < 1 {
		divisor = 1
	}

	year, week := ev.AdmissionDate.ISOWeek()

	return models.ProcessedPatient{
		PatientEvent:  ev,
		AdmissionWeek: fmt.Sprintf("%d-W%02d", year, week),
		WeekStart:     weekStart(ev.AdmissionDate).Format("2006-01-02"),
		IsInpatient:   ev.AdmissionType == models.AdmissionInpatient,
		CostPerDay:    math.Round(ev.TreatmentCost/float64(divisor)*100) / 100,
	}
}

// weekStart returns the Monday of the ISO week containing t.
func weekStart(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return t.AddDate(0, 0, -offset)
}

func computeKPIs(patients []models.ProcessedPatient) models.KPISummary {
	var inpatient, icu, readmitted, mortality, complication int
	var costSum, inpatientLOS float64

	for _, p := range patients {
		if p.IsInpatient {
			inpatient++
			inpatientLOS += float64(p.LengthOfStay)
		}
		if p.ICUFlag {
			icu++
		}
		if p.Readmitted {
			readmitted++
		}
		if p.MortalityFlag {
			mortality++
		}
		if p.ComplicationFlag {
			complication++
		}
		costSum += p.TreatmentCost
	}

	total := len(patients)
	occupancy := ratio(inpatient, total)

	return models.KPISummary{
		OccupancyRate:    occupancy,
		ICURate:          ratio(icu, total),
		AvgLengthOfStay:  round2(mean(inpatientLOS, inpatient)),
		ReadmissionRate:  ratio(readmitted, total),
		MortalityRate:    ratio(mortality, total),
		ComplicationRate: ratio(complication, total),
		AvgTreatmentCost: round2(mean(costSum, total)),
		OPDShare:         round3(1 - occupancy),
	}
}

func departmentSummaries(patients []models.ProcessedPatient) []models.DepartmentSummary {
	type acc struct {
		count      int
		losSum     float64
		readmitted int
		costSum    float64
		icu        int
	}
	byDept := make(map[string]*acc)
	for _, p := range patients {
		a, ok := byDept[p.Department]
		if !ok {
			a = &acc{}
			byDept[p.Department] = a
		}
		a.count++
		a.losSum += float64(p.LengthOfStay)
		a.costSum += p.TreatmentCost
		if p.Readmitted {
			a.readmitted++
		}
		if p.ICUFlag {
			a.icu++
		}
	}

	summaries := make([]models.DepartmentSummary, 0, len(byDept))
	for dept, a := range byDept {
		summaries = append(summaries, models.DepartmentSummary{
			Department:       dept,
			Admissions:       a.count,
			AvgLengthOfStay:  round3(mean(a.losSum, a.count)),
			ReadmissionRate:  ratio(a.readmitted, a.count),
			AvgTreatmentCost: round3(mean(a.costSum, a.count)),
			ICURate:          ratio(a.icu, a.count),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Department < summaries[j].Department
	})
	return summaries
}

func weeklySummaries(patients []models.ProcessedPatient) []models.WeeklySummary {
	type acc struct {
		weekStart string
		count     int
		costSum   float64
	}
	byWeek := make(map[string]*acc)
	for _, p := range patients {
		a, ok := byWeek[p.AdmissionWeek]
		if !ok {
			a = &acc{weekStart: p.WeekStart}
			byWeek[p.AdmissionWeek] = a
		}
		a.count++
		a.costSum += p.TreatmentCost
	}

	summaries := make([]models.WeeklySummary, 0, len(byWeek))
	for week, a := range byWeek {
		summaries = append(summaries, models.WeeklySummary{
			AdmissionWeek:    week,
			WeekStart:        a.weekStart,
			Admissions:       a.count,
			AvgTreatmentCost: round2(mean(a.costSum, a.count)),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].AdmissionWeek < summaries[j].AdmissionWeek
	})
	return summaries
}

func ratio(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return round3(float64(count) / float64(total))
}

func mean(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
