package population

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slabworth/compengine/internal/model"
)

// Population endpoints disagree wildly about shape: some return a
// grade-keyed object, some an array of rows, some nest everything
// under the grading company. Rather than duck-typing through the
// parser, each known shape gets a detector that either produces a
// typed breakdown or reports no-match; detectors run in priority
// order.
type shapeDetector func(value interface{}, company string) ([]model.GradeCount, bool)

var detectors = []shapeDetector{
	detectCompanyNested,
	detectGradeRows,
	detectGradeKeyed,
}

// ParseGradeBreakdown decodes a population payload of any recognized
// shape into a grade breakdown.
func ParseGradeBreakdown(data []byte, company string) ([]model.GradeCount, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("decode population payload: %w", err)
	}

	for _, detect := range detectors {
		if breakdown, ok := detect(value, company); ok {
			return breakdown, nil
		}
	}
	return nil, fmt.Errorf("unrecognized population payload shape")
}

// detectCompanyNested handles {"PSA": {"10": 123, ...}, "BGS": {...}}
// by descending into the requested company's object and re-running the
// flat detectors on it.
func detectCompanyNested(value interface{}, company string) ([]model.GradeCount, bool) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, false
	}

	for key, nested := range obj {
		if !strings.EqualFold(key, company) {
			continue
		}
		if breakdown, ok := detectGradeRows(nested, company); ok {
			return breakdown, true
		}
		if breakdown, ok := detectGradeKeyed(nested, company); ok {
			return breakdown, true
		}
	}
	return nil, false
}

// detectGradeRows handles [{"grade": "10", "count": 123}, ...].
// "pop" and "population" are accepted as count aliases.
func detectGradeRows(value interface{}, _ string) ([]model.GradeCount, bool) {
	rows, ok := value.([]interface{})
	if !ok || len(rows) == 0 {
		return nil, false
	}

	breakdown := make([]model.GradeCount, 0, len(rows))
	for _, raw := range rows {
		row, ok := raw.(map[string]interface{})
		if !ok {
			return nil, false
		}

		grade, ok := row["grade"].(string)
		if !ok {
			return nil, false
		}

		count, ok := rowCount(row)
		if !ok {
			return nil, false
		}

		breakdown = append(breakdown, model.GradeCount{Grade: grade, Count: count})
	}
	return breakdown, true
}

func rowCount(row map[string]interface{}) (int, bool) {
	for _, key := range []string{"count", "pop", "population"} {
		if v, ok := row[key].(float64); ok {
			return int(v), true
		}
	}
	return 0, false
}

// detectGradeKeyed handles {"10": 123, "9": 456, "Auth": 2}. Every
// value must be numeric, otherwise the object is something else
// (likely company-nested) and this detector declines.
func detectGradeKeyed(value interface{}, _ string) ([]model.GradeCount, bool) {
	obj, ok := value.(map[string]interface{})
	if !ok || len(obj) == 0 {
		return nil, false
	}

	breakdown := make([]model.GradeCount, 0, len(obj))
	for grade, raw := range obj {
		count, ok := raw.(float64)
		if !ok {
			return nil, false
		}
		breakdown = append(breakdown, model.GradeCount{Grade: grade, Count: int(count)})
	}

	SortBreakdown(breakdown)
	return breakdown, true
}
