package alerts

import (
	"strconv"
	"strings"
)

// Report is the outcome of one job run that rules are evaluated against.
type Report struct {
	Job    string
	Date   string
	Failed bool

	// Matchup runs.
	Games    int
	Fetched  int
	Degraded int
	Skipped  int

	// Umpire runs.
	Umpires int
}

// DegradedPct is the share of records written this run that hold sentinel
// splits. A run that wrote nothing reports 0.
func (r Report) DegradedPct() float64 {
	written := r.Fetched + r.Degraded
	if written == 0 {
		return 0
	}
	return 100 * float64(r.Degraded) / float64(written)
}

// evalCondition evaluates a rule condition string against a run report.
//
// Supported expressions (field operator value):
//
//	failed == 1
//	games == 0
//	degraded > 5
//	degraded_pct >= 25
//	skipped > 4
//	umpires < 20
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, r Report) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	v, ok := numericField(field, r)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the report.
func numericField(field string, r Report) (float64, bool) {
	switch field {
	case "failed":
		if r.Failed {
			return 1, true
		}
		return 0, true
	case "games":
		return float64(r.Games), true
	case "fetched":
		return float64(r.Fetched), true
	case "degraded":
		return float64(r.Degraded), true
	case "degraded_pct":
		return r.DegradedPct(), true
	case "skipped":
		return float64(r.Skipped), true
	case "umpires":
		return float64(r.Umpires), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
