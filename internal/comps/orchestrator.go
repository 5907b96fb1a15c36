// Package comps reconciles disagreeing price reports from independent
// sources into one defensible number, adjusted for grading-population
// scarcity.
package comps

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/slabworth/compengine/internal/aggregate"
	"github.com/slabworth/compengine/internal/gradefilter"
	"github.com/slabworth/compengine/internal/model"
	"github.com/slabworth/compengine/internal/population"
	"github.com/slabworth/compengine/internal/sources"
)

// Options configures an Orchestrator.
type Options struct {
	// PerSourceTimeout bounds each adapter call. A timed-out adapter
	// becomes an error SourceResult instead of hanging the run.
	PerSourceTimeout time.Duration

	// RateLimit caps adapter invocations per second across the run.
	// Zero disables limiting.
	RateLimit rate.Limit

	// Reliability holds the per-source weights for the point-estimate
	// fallback blend.
	Reliability aggregate.Reliability

	// PopEngine supplies population data for graded queries. Nil
	// disables rarity adjustment.
	PopEngine *population.Engine
}

// Orchestrator runs every configured source adapter for a query,
// pools and deduplicates their sales, and produces the final report.
type Orchestrator struct {
	adapters    []sources.Adapter
	reliability aggregate.Reliability
	filter      *gradefilter.Filter
	popEngine   *population.Engine
	timeout     time.Duration
	limiter     *rate.Limiter
	now         func() time.Time
}

// New creates an orchestrator over the adapters in priority order.
// Earlier adapters win deduplication ties.
func New(adapters []sources.Adapter, opts Options) *Orchestrator {
	timeout := opts.PerSourceTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, len(adapters)+1)
	}

	return &Orchestrator{
		adapters:    adapters,
		reliability: opts.Reliability,
		filter:      gradefilter.New(),
		popEngine:   opts.PopEngine,
		timeout:     timeout,
		limiter:     limiter,
		now:         time.Now,
	}
}

// SetClock overrides the orchestrator's time source for tests.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Price runs the full pipeline for one query. It always returns a
// well-formed report: failing sources degrade to error entries, an
// empty pool degrades to the fallback blend, and zero usable sources
// leave the aggregate fields nil.
func (o *Orchestrator) Price(ctx context.Context, query model.PricingQuery) *model.PricingReport {
	results := o.collect(ctx, query)

	report := &model.PricingReport{
		RequestID:   uuid.NewString(),
		Query:       query,
		Sources:     results,
		GeneratedAt: o.now(),
	}

	pool := o.poolSales(results, query)

	var agg *model.Aggregate
	if len(pool) > 0 {
		deduped := aggregate.Dedup(pool)
		agg = aggregate.WeightedTrimmedMean(deduped, o.now())
	} else {
		agg = aggregate.FallbackBlend(results, o.reliability)
	}

	if agg != nil {
		report.AggregateAverage = model.Float64Ptr(agg.Average)
		report.AggregateLow = model.Float64Ptr(agg.Low)
		report.AggregateHigh = model.Float64Ptr(agg.High)
	}

	o.applyPopulation(ctx, query, report)
	return report
}

// collect invokes every adapter concurrently, isolating failures.
// Results come back in configured adapter order regardless of
// completion order.
func (o *Orchestrator) collect(ctx context.Context, query model.PricingQuery) []model.SourceResult {
	results := make([]model.SourceResult, len(o.adapters))

	var wg sync.WaitGroup
	for i, adapter := range o.adapters {
		wg.Add(1)
		go func(i int, adapter sources.Adapter) {
			defer wg.Done()
			results[i] = o.invoke(ctx, adapter, query)
		}(i, adapter)
	}
	wg.Wait()

	return results
}

// invoke runs one adapter with a timeout, converting errors, panics,
// and malformed returns into well-formed error results.
func (o *Orchestrator) invoke(ctx context.Context, adapter sources.Adapter, query model.PricingQuery) (result model.SourceResult) {
	name := adapter.Source()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("comps: %s panicked: %v", name, r)
			result = *model.ErrorResult(name, fmt.Sprintf("adapter panic: %v", r))
		}
	}()

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return *model.ErrorResult(name, fmt.Sprintf("rate limit wait: %v", err))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res, err := adapter.FetchComps(callCtx, query)
	if err != nil {
		return *model.ErrorResult(name, err.Error())
	}
	if res == nil {
		return *model.ErrorResult(name, "adapter returned no result")
	}

	if res.Source == "" {
		res.Source = name
	}
	if res.Sales == nil {
		res.Sales = []model.SaleRecord{}
	}
	return *res
}

// poolSales merges every successful source's sales into one normalized
// list, narrowing each source's listings to the grades relevant to the
// query first. Pool order follows source priority, which Dedup relies
// on for first-seen wins.
func (o *Orchestrator) poolSales(results []model.SourceResult, query model.PricingQuery) []model.NormalizedSale {
	var pool []model.NormalizedSale
	for _, res := range results {
		if res.Error != "" || len(res.Sales) == 0 {
			continue
		}
		relevant := o.filter.Relevant(res.Sales, query)
		pool = append(pool, aggregate.Normalize(res.Source, relevant)...)
	}
	return pool
}

// applyPopulation asks the rarity engine for a multiplier on graded
// queries. Any failure in here, panics included, is swallowed: the
// price aggregate must never depend on population lookups succeeding.
func (o *Orchestrator) applyPopulation(ctx context.Context, query model.PricingQuery, report *model.PricingReport) {
	if o.popEngine == nil || !query.Graded() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("comps: population lookup panicked: %v", r)
			report.PopData = nil
			report.PopMultiplier = nil
			report.PopAdjustedAverage = nil
		}
	}()

	snap, err := o.popEngine.Lookup(ctx, query)
	if err != nil {
		log.Printf("comps: population lookup: %v", err)
		return
	}
	if snap == nil {
		return
	}

	report.PopData = snap
	multiplier := o.popEngine.Multiplier(snap)
	report.PopMultiplier = model.Float64Ptr(multiplier)

	if report.AggregateAverage != nil {
		report.PopAdjustedAverage = model.Float64Ptr(*report.AggregateAverage * multiplier)
	}
}
