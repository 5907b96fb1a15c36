package population

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/slabworth/compengine/internal/model"
)

func gradedQuery(company, grade string) model.PricingQuery {
	return model.PricingQuery{
		PlayerName: "Mike Trout",
		Year:       "2011",
		Brand:      "Topps Update",
		CardNumber: "US175",
		Grading:    &model.GradingInfo{Company: company, Grade: grade},
	}
}

func psaFixture() *model.PopulationSnapshot {
	return &model.PopulationSnapshot{
		GradingCompany: "PSA",
		GradeBreakdown: []model.GradeCount{
			{Grade: "10", Count: 40},
			{Grade: "9", Count: 120},
			{Grade: "8", Count: 90},
		},
	}
}

func TestLookup_UngradedYieldsNoData(t *testing.T) {
	engine := NewEngine(nil, nil, nil)

	q := gradedQuery("PSA", "10")
	q.Grading = nil
	snap, err := engine.Lookup(context.Background(), q)
	if err != nil || snap != nil {
		t.Fatalf("ungraded query must yield (nil, nil), got %+v, %v", snap, err)
	}
}

func TestLookup_ClassifiesPrimaryResult(t *testing.T) {
	primary := &MockSource{CompanyName: "PSA", Snapshot: psaFixture()}
	engine := NewEngine([]Source{primary}, nil, nil)

	snap, err := engine.Lookup(context.Background(), gradedQuery("PSA", "9"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if snap.TotalGraded != 250 {
		t.Errorf("expected total 250 summed from breakdown, got %d", snap.TotalGraded)
	}
	if snap.TargetGradePop != 120 || snap.HigherGradePop != 40 {
		t.Errorf("expected target/higher 120/40, got %d/%d", snap.TargetGradePop, snap.HigherGradePop)
	}
	if snap.Percentile != 64 {
		t.Errorf("expected percentile 64, got %v", snap.Percentile)
	}
	if snap.RarityTier != TierHigh {
		t.Errorf("expected tier %q, got %q", TierHigh, snap.RarityTier)
	}
}

func TestLookup_CacheHitSkipsSources(t *testing.T) {
	primary := &MockSource{CompanyName: "PSA", Snapshot: psaFixture()}
	engine := NewEngine([]Source{primary}, nil, nil)
	ctx := context.Background()

	if _, err := engine.Lookup(ctx, gradedQuery("PSA", "10")); err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if _, err := engine.Lookup(ctx, gradedQuery("PSA", "10")); err != nil {
		t.Fatalf("second lookup: %v", err)
	}

	if primary.Calls != 1 {
		t.Errorf("expected 1 source call with a fresh cache, got %d", primary.Calls)
	}
}

func TestLookup_StaleSnapshotRefetches(t *testing.T) {
	primary := &MockSource{CompanyName: "PSA", Snapshot: psaFixture()}
	engine := NewEngine([]Source{primary}, nil, nil)
	ctx := context.Background()

	base := time.Now()
	engine.SetClock(func() time.Time { return base })
	if _, err := engine.Lookup(ctx, gradedQuery("PSA", "10")); err != nil {
		t.Fatalf("first lookup: %v", err)
	}

	engine.SetClock(func() time.Time { return base.Add(8 * 24 * time.Hour) })
	if _, err := engine.Lookup(ctx, gradedQuery("PSA", "10")); err != nil {
		t.Fatalf("stale lookup: %v", err)
	}

	if primary.Calls != 2 {
		t.Errorf("expected refetch after 7-day TTL, got %d calls", primary.Calls)
	}
}

func TestLookup_FallbackWhenPrimaryFails(t *testing.T) {
	primary := &MockSource{CompanyName: "PSA", Err: errors.New("blocked")}
	fallback := &MockSource{CompanyName: "", Snapshot: psaFixture()}
	engine := NewEngine([]Source{primary}, fallback, nil)

	snap, err := engine.Lookup(context.Background(), gradedQuery("PSA", "10"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if snap == nil {
		t.Fatal("expected fallback snapshot")
	}
	if fallback.Calls != 1 {
		t.Errorf("expected fallback consulted once, got %d", fallback.Calls)
	}
	if snap.RarityTier == "" {
		t.Error("fallback snapshot must be classified like a primary one")
	}
}

func TestLookup_NoRegisteredSourceUsesFallback(t *testing.T) {
	fallback := &MockSource{Snapshot: psaFixture()}
	engine := NewEngine(nil, fallback, nil)

	snap, err := engine.Lookup(context.Background(), gradedQuery("PSA", "10"))
	if err != nil || snap == nil {
		t.Fatalf("expected fallback data with no primary registered, got %+v, %v", snap, err)
	}
}

func TestLookup_FallbackWrongCompanyRejected(t *testing.T) {
	wrong := psaFixture()
	wrong.GradingCompany = "BGS"
	fallback := &MockSource{Snapshot: wrong}
	engine := NewEngine(nil, fallback, nil)

	snap, err := engine.Lookup(context.Background(), gradedQuery("PSA", "10"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if snap != nil {
		t.Fatal("fallback data for another company must be discarded")
	}
}

func TestLookup_BothPathsFailYieldsNil(t *testing.T) {
	primary := &MockSource{CompanyName: "PSA", Err: errors.New("down")}
	fallback := &MockSource{Err: errors.New("also down")}
	engine := NewEngine([]Source{primary}, fallback, nil)

	snap, err := engine.Lookup(context.Background(), gradedQuery("PSA", "10"))
	if err != nil {
		t.Fatalf("total failure must not surface an error, got %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil snapshot, got %+v", snap)
	}
}
