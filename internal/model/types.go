package model

import "time"

// GradingInfo identifies the grading company and grade a query targets.
// A nil GradingInfo on a query means the card is being priced raw.
type GradingInfo struct {
	Company string `json:"company"` // "PSA", "BGS", "CGC", "SGC"
	Grade   string `json:"grade"`   // "10", "9.5", "Auth", ...
}

// PricingQuery identifies exactly one card variant to price.
// Built per request and never mutated.
type PricingQuery struct {
	PlayerName string       `json:"player_name"`
	Year       string       `json:"year"`
	Brand      string       `json:"brand"`
	CardNumber string       `json:"card_number"`
	SetName    string       `json:"set_name,omitempty"`
	Parallel   string       `json:"parallel,omitempty"`
	Grading    *GradingInfo `json:"grading,omitempty"`
}

// Graded reports whether the query asks for a graded copy.
func (q PricingQuery) Graded() bool {
	return q.Grading != nil && q.Grading.Company != "" && q.Grading.Grade != ""
}

// SaleRecord is one observed transaction as reported by a source.
// Date is free-form upstream text and must be normalized before comparison.
type SaleRecord struct {
	Price float64 `json:"price"`
	Date  string  `json:"date,omitempty"`
	Venue string  `json:"venue"`
	Grade string  `json:"grade,omitempty"`
	Title string  `json:"title,omitempty"`
}

// NormalizedSale is a SaleRecord with its date parsed to epoch
// milliseconds and tagged with the adapter that reported it. Used only
// inside the aggregation pipeline.
type NormalizedSale struct {
	Price  float64
	DateMs *int64 // nil when the upstream date was missing or unparseable
	Venue  string
	Source string
}

// SourceResult is the per-adapter outcome for one query. When Error is
// set the numeric fields are not authoritative, but the struct is still
// well-formed (empty sales, nil numbers) so downstream code never has
// to nil-check its way around a failed source.
type SourceResult struct {
	Source       string       `json:"source"`
	MarketValue  *float64     `json:"market_value,omitempty"`
	Sales        []SaleRecord `json:"sales"`
	AveragePrice *float64     `json:"average_price,omitempty"`
	Low          *float64     `json:"low,omitempty"`
	High         *float64     `json:"high,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// ErrorResult builds the well-formed failure shape for a source.
func ErrorResult(source, errMsg string) *SourceResult {
	return &SourceResult{Source: source, Sales: []SaleRecord{}, Error: errMsg}
}

// GradeCount is one row of a population report's grade breakdown.
type GradeCount struct {
	Grade string `json:"grade"`
	Count int    `json:"count"`
}

// PopulationSnapshot is an immutable capture of a grading company's
// population report for one card+grade. A newer snapshot supersedes it
// after TTL expiry; snapshots are never mutated in place.
type PopulationSnapshot struct {
	GradingCompany string       `json:"grading_company"`
	TotalGraded    int          `json:"total_graded"`
	GradeBreakdown []GradeCount `json:"grade_breakdown"`
	TargetGrade    string       `json:"target_grade"`
	TargetGradePop int          `json:"target_grade_pop"`
	HigherGradePop int          `json:"higher_grade_pop"`
	Percentile     float64      `json:"percentile"`
	RarityTier     string       `json:"rarity_tier"`
	FetchedAt      time.Time    `json:"fetched_at"`
}

// Aggregate holds the reconciled price figures for one query.
type Aggregate struct {
	Average float64 `json:"average"`
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
}

// PricingReport is the final output of one pricing run. Built once,
// never mutated afterward; persistence is a caller concern.
type PricingReport struct {
	RequestID          string              `json:"request_id"`
	Query              PricingQuery        `json:"query"`
	Sources            []SourceResult      `json:"sources"`
	AggregateAverage   *float64            `json:"aggregate_average"`
	AggregateLow       *float64            `json:"aggregate_low"`
	AggregateHigh      *float64            `json:"aggregate_high"`
	PopData            *PopulationSnapshot `json:"pop_data"`
	PopMultiplier      *float64            `json:"pop_multiplier,omitempty"`
	PopAdjustedAverage *float64            `json:"pop_adjusted_average,omitempty"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

// Float64Ptr returns a pointer to v. Convenience for optional fields.
func Float64Ptr(v float64) *float64 { return &v }
