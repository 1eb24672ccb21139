package dashboard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/central-hospital/insights-platform/pkg/common/models"
)

// Clause is one comparison in a prediction filter expression, e.g.
// "department = Cardiology" or "probability >= 0.7".
type Clause struct {
	Field    string
	Operator string
	Value    string
}

var clauseRegex = regexp.MustCompile(`([a-zA-Z0-9_]+)\s*(>=|<=|!=|=|>|<)\s*([^,]+)`)

var filterFields = map[string]bool{
	"patient_id":      true,
	"department":      true,
	"length_of_stay":  true,
	"readmitted":      true,
	"probability":     true,
	"predicted_class": true,
}

// ParseFilter parses a comma-separated clause list. An empty input is a
// valid filter that matches everything.
func ParseFilter(input string) ([]Clause, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	matches := clauseRegex.FindAllStringSubmatch(strings.ToLower(input), -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no clauses in filter %q", input)
	}

	clauses := make([]Clause, 0, len(matches))
	for _, match := range matches {
		clause := Clause{
			Field:    strings.TrimSpace(match[1]),
			Operator: match[2],
			Value:    strings.TrimSpace(match[3]),
		}
		if !filterFields[clause.Field] {
			return nil, fmt.Errorf("unknown filter field %q", clause.Field)
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

// Matches reports whether the prediction satisfies every clause.
func Matches(p models.PredictionRecord, clauses []Clause) bool {
	for _, c := range clauses {
		if !matchClause(p, c) {
			return false
		}
	}
	return true
}

func matchClause(p models.PredictionRecord, c Clause) bool {
	switch c.Field {
	case "department":
		return compareString(strings.ToLower(p.Department), c.Operator, c.Value)
	case "readmitted":
		return compareString(strconv.FormatBool(p.Readmitted), c.Operator, c.Value)
	case "patient_id":
		return compareFloat(float64(p.PatientID), c.Operator, c.Value)
	case "length_of_stay":
		return compareFloat(float64(p.LengthOfStay), c.Operator, c.Value)
	case "probability":
		return compareFloat(p.PredictedReadmissionProb, c.Operator, c.Value)
	case "predicted_class":
		return compareFloat(float64(p.PredictedClass), c.Operator, c.Value)
	}
	return false
}

func compareString(have, operator, want string) bool {
	switch operator {
	case "=":
		return have == want
	case "!=":
		return have != want
	}
	return false
}

func compareFloat(have float64, operator, raw string) bool {
	want, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false
	}
	switch operator {
	case "=":
		return have == want
	case "!=":
		return have != want
	case ">":
		return have > want
	case "<":
		return have < want
	case ">=":
		return have >= want
	case "<=":
		return have <= want
	}
	return false
}
