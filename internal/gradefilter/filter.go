package gradefilter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/slabworth/compengine/internal/model"
)

// MinThreshold is the smallest tier output worth keeping. A tier that
// matches fewer records falls through to the next, looser tier.
const MinThreshold = 2

// Companies that grade on a half-point scale. Everyone else steps in
// whole grades.
var halfPointCompanies = map[string]bool{
	"BGS": true,
	"CGC": true,
}

// Extractor pulls a "COMPANY GRADE" label out of a sale record.
// Returns empty when no grade can be determined. Callers with
// structured upstream data can supply their own instead of relying on
// title parsing.
type Extractor func(model.SaleRecord) (company, grade string)

var titleGradeRe = regexp.MustCompile(`(?i)\b(PSA|BGS|CGC|SGC)[\s-]*((?:10|[1-9])(?:\.5)?|Authentic|Auth)\b`)

// TitleExtractor is the default Extractor. It prefers the record's
// structured Grade field and falls back to scanning the free-text
// title for a grading label.
func TitleExtractor(rec model.SaleRecord) (string, string) {
	for _, text := range []string{rec.Grade, rec.Title} {
		if text == "" {
			continue
		}
		if m := titleGradeRe.FindStringSubmatch(text); m != nil {
			company := strings.ToUpper(m[1])
			grade := m[2]
			if strings.EqualFold(grade, "Authentic") || strings.EqualFold(grade, "Auth") {
				grade = "Auth"
			}
			return company, grade
		}
	}
	return "", ""
}

// Filter narrows sale records to the ones most relevant to the
// requested grade.
type Filter struct {
	extract Extractor
}

// New creates a filter with the default title-based extractor.
func New() *Filter {
	return &Filter{extract: TitleExtractor}
}

// NewWithExtractor creates a filter using a caller-supplied extractor.
func NewWithExtractor(extract Extractor) *Filter {
	return &Filter{extract: extract}
}

// Relevant returns the subset of records most relevant to the query's
// grade, trying progressively looser tiers: exact grade, adjacent
// grade, same company, then everything. The result is never empty when
// records is non-empty, and ungraded queries pass everything through.
func (f *Filter) Relevant(records []model.SaleRecord, query model.PricingQuery) []model.SaleRecord {
	if len(records) == 0 || !query.Graded() {
		return records
	}

	company := strings.ToUpper(query.Grading.Company)
	grade := query.Grading.Grade

	if exact := f.matchExact(records, company, grade); len(exact) >= MinThreshold {
		return exact
	}
	if adjacent := f.matchAdjacent(records, company, grade); len(adjacent) >= MinThreshold {
		return adjacent
	}
	if sameCompany := f.matchCompany(records, company); len(sameCompany) >= MinThreshold {
		return sameCompany
	}
	return records
}

func (f *Filter) matchExact(records []model.SaleRecord, company, grade string) []model.SaleRecord {
	var out []model.SaleRecord
	for _, rec := range records {
		c, g := f.extract(rec)
		if c == company && sameGrade(g, grade) {
			out = append(out, rec)
		}
	}
	return out
}

// matchAdjacent keeps exact matches plus records within one grading
// step of the requested grade. Authenticated-only labels have no
// numeric neighbors, so the tier is skipped for them.
func (f *Filter) matchAdjacent(records []model.SaleRecord, company, grade string) []model.SaleRecord {
	want, ok := parseGrade(grade)
	if !ok {
		return nil
	}

	step := 1.0
	if halfPointCompanies[company] {
		step = 0.5
	}
	lo := clampGrade(want - step)
	hi := clampGrade(want + step)

	var out []model.SaleRecord
	for _, rec := range records {
		c, g := f.extract(rec)
		if c != company {
			continue
		}
		v, ok := parseGrade(g)
		if !ok {
			continue
		}
		if v >= lo && v <= hi {
			out = append(out, rec)
		}
	}
	return out
}

func (f *Filter) matchCompany(records []model.SaleRecord, company string) []model.SaleRecord {
	var out []model.SaleRecord
	for _, rec := range records {
		if c, _ := f.extract(rec); c == company {
			out = append(out, rec)
		}
	}
	return out
}

// sameGrade compares numerically when both sides parse, so "10" and
// "10.0" match, and falls back to a case-insensitive string compare
// for labels like "Auth".
func sameGrade(a, b string) bool {
	av, aok := parseGrade(a)
	bv, bok := parseGrade(b)
	if aok && bok {
		return av == bv
	}
	return strings.EqualFold(a, b)
}

func parseGrade(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Grades live on a 1-10 scale; adjacency at the ends clamps instead of
// walking off the range.
func clampGrade(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
