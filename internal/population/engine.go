package population

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/slabworth/compengine/internal/model"
)

// SnapshotTTL is how long a cached population snapshot stays fresh.
// Population reports move slowly; a week is plenty.
const SnapshotTTL = 7 * 24 * time.Hour

// Source fetches a population report from one grading company's
// backend. A source may return (nil, nil) when it simply has no data
// for the card.
type Source interface {
	// Company returns the grading company this source covers, or ""
	// for a generic source that can serve any company.
	Company() string

	FetchPopulation(ctx context.Context, req Request) (*model.PopulationSnapshot, error)
}

// Engine classifies grading-population scarcity for graded queries.
// It owns a TTL cache of snapshots over a SnapshotStore and a
// primary/fallback source chain.
type Engine struct {
	sources  map[string]Source // company (upper-cased) -> primary source
	fallback Source            // generic source tried when the primary fails
	store    SnapshotStore
	ttl      time.Duration
	now      func() time.Time
}

// NewEngine builds an engine over the given primary sources. A nil
// store falls back to in-memory caching for the life of the process.
func NewEngine(sources []Source, fallback Source, store SnapshotStore) *Engine {
	byCompany := make(map[string]Source, len(sources))
	for _, s := range sources {
		byCompany[strings.ToUpper(s.Company())] = s
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Engine{
		sources:  byCompany,
		fallback: fallback,
		store:    store,
		ttl:      SnapshotTTL,
		now:      time.Now,
	}
}

// SetClock overrides the engine's time source for tests.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Lookup returns the population snapshot for a graded query, serving
// from cache when fresh and walking the primary-then-fallback source
// chain otherwise. Ungraded queries and total lookup failure both
// yield (nil, nil): absence of population data is never an error,
// only "no rarity adjustment".
func (e *Engine) Lookup(ctx context.Context, query model.PricingQuery) (*model.PopulationSnapshot, error) {
	if !query.Graded() {
		return nil, nil
	}
	req := RequestFromQuery(query)

	if snap, err := e.store.Latest(ctx, req); err == nil && snap != nil {
		if e.now().Sub(snap.FetchedAt) < e.ttl {
			return snap, nil
		}
	}

	snap := e.fetch(ctx, req)
	if snap == nil {
		return nil, nil
	}

	e.classify(snap, req.Grade)

	if err := e.store.Save(ctx, req, snap); err != nil {
		log.Printf("population: save snapshot: %v", err)
	}
	return snap, nil
}

// Multiplier converts a snapshot into the price adjustment factor.
func (e *Engine) Multiplier(snap *model.PopulationSnapshot) float64 {
	return PriceMultiplier(snap.TargetGradePop)
}

// fetch walks the source chain: the company-specific source first,
// then the single generic fallback. Fallback data only counts when it
// actually covers the requested company.
func (e *Engine) fetch(ctx context.Context, req Request) *model.PopulationSnapshot {
	company := strings.ToUpper(req.Company)

	if primary, ok := e.sources[company]; ok {
		snap, err := primary.FetchPopulation(ctx, req)
		if err != nil {
			log.Printf("population: %s source: %v", company, err)
		} else if snap != nil {
			return snap
		}
	}

	if e.fallback == nil {
		return nil
	}
	snap, err := e.fallback.FetchPopulation(ctx, req)
	if err != nil {
		log.Printf("population: fallback source: %v", err)
		return nil
	}
	if snap == nil || !strings.EqualFold(snap.GradingCompany, req.Company) {
		return nil
	}
	return snap
}

// classify fills in the derived fields of a freshly fetched snapshot:
// target and higher-grade pops from the breakdown, percentile, rarity
// tier, and fetch time.
func (e *Engine) classify(snap *model.PopulationSnapshot, grade string) {
	snap.TargetGrade = grade
	snap.FetchedAt = e.now()

	if snap.TotalGraded == 0 {
		for _, gc := range snap.GradeBreakdown {
			snap.TotalGraded += gc.Count
		}
	}

	target, higher := splitBreakdown(snap.GradeBreakdown, grade)
	snap.TargetGradePop = target
	snap.HigherGradePop = higher
	snap.Percentile = ComputePercentile(target, higher, snap.TotalGraded)
	snap.RarityTier = ClassifyRarityTier(target)
}

// splitBreakdown sums the population at exactly the target grade and
// strictly above it. Non-numeric labels ("Auth") only ever match
// exactly; they have no position on the numeric scale.
func splitBreakdown(breakdown []model.GradeCount, grade string) (target, higher int) {
	want, wantNumeric := parseGradeLabel(grade)

	for _, gc := range breakdown {
		v, numeric := parseGradeLabel(gc.Grade)
		switch {
		case strings.EqualFold(normalizeGradeLabel(gc.Grade), normalizeGradeLabel(grade)):
			target += gc.Count
		case numeric && wantNumeric && v == want:
			target += gc.Count
		case numeric && wantNumeric && v > want:
			higher += gc.Count
		}
	}
	return target, higher
}

func parseGradeLabel(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func normalizeGradeLabel(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "authentic" {
		return "auth"
	}
	return s
}

// SortBreakdown orders a grade breakdown from highest grade to lowest,
// with non-numeric labels last. Presentation nicety for reports.
func SortBreakdown(breakdown []model.GradeCount) {
	sort.SliceStable(breakdown, func(i, j int) bool {
		vi, iok := parseGradeLabel(breakdown[i].Grade)
		vj, jok := parseGradeLabel(breakdown[j].Grade)
		if iok && jok {
			return vi > vj
		}
		return iok && !jok
	})
}
