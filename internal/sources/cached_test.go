package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/slabworth/compengine/internal/cache"
	"github.com/slabworth/compengine/internal/model"
)

func testQuery() model.PricingQuery {
	return model.PricingQuery{PlayerName: "Mike Trout", Year: "2011", Brand: "Topps Update", CardNumber: "US175"}
}

func newTestCache(t *testing.T) *cache.ResultCache {
	t.Helper()
	c, err := cache.New("")
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	return c
}

func TestCachedAdapter_ServesFromCache(t *testing.T) {
	mock := &MockAdapter{Name: "ebay", Result: &model.SourceResult{
		Sales: []model.SaleRecord{{Price: 42, Venue: "eBay"}},
	}}
	adapter := WithCache(mock, newTestCache(t), time.Hour)

	first, err := adapter.FetchComps(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := adapter.FetchComps(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if mock.Calls != 1 {
		t.Errorf("expected one upstream call, got %d", mock.Calls)
	}
	if len(second.Sales) != 1 || second.Sales[0].Price != first.Sales[0].Price {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
}

func TestCachedAdapter_ExpiredEntryRefetches(t *testing.T) {
	mock := &MockAdapter{Name: "ebay", Result: &model.SourceResult{
		Sales: []model.SaleRecord{{Price: 42, Venue: "eBay"}},
	}}
	adapter := WithCache(mock, newTestCache(t), 0) // instantly expired

	_, _ = adapter.FetchComps(context.Background(), testQuery())
	_, _ = adapter.FetchComps(context.Background(), testQuery())

	if mock.Calls != 2 {
		t.Errorf("zero TTL should never serve from cache, got %d calls", mock.Calls)
	}
}

func TestCachedAdapter_ErrorsNotCached(t *testing.T) {
	mock := &MockAdapter{Name: "ebay", Err: errors.New("upstream down")}
	adapter := WithCache(mock, newTestCache(t), time.Hour)

	if _, err := adapter.FetchComps(context.Background(), testQuery()); err == nil {
		t.Fatal("expected upstream error")
	}

	// Upstream recovers; the failure must not have been cached.
	mock.Err = nil
	mock.Result = &model.SourceResult{Sales: []model.SaleRecord{{Price: 10, Venue: "eBay"}}}
	res, err := adapter.FetchComps(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("fetch after recovery: %v", err)
	}
	if len(res.Sales) != 1 {
		t.Errorf("expected fresh result after recovery, got %+v", res)
	}
}

func TestCachedAdapter_DistinctQueriesDistinctEntries(t *testing.T) {
	mock := &MockAdapter{Name: "ebay", Result: &model.SourceResult{Sales: []model.SaleRecord{{Price: 5, Venue: "eBay"}}}}
	adapter := WithCache(mock, newTestCache(t), time.Hour)

	raw := testQuery()
	graded := testQuery()
	graded.Grading = &model.GradingInfo{Company: "PSA", Grade: "10"}

	_, _ = adapter.FetchComps(context.Background(), raw)
	_, _ = adapter.FetchComps(context.Background(), graded)

	if mock.Calls != 2 {
		t.Errorf("raw and graded queries must not share a cache entry, got %d calls", mock.Calls)
	}
}
