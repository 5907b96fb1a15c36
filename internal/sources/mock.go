package sources

import (
	"context"
	"time"

	"github.com/slabworth/compengine/internal/model"
)

// MockAdapter is a canned source for tests.
type MockAdapter struct {
	Name    string
	Result  *model.SourceResult
	Err     error
	Delay   time.Duration
	Panics  bool
	Calls   int
}

func (m *MockAdapter) Source() string { return m.Name }

func (m *MockAdapter) FetchComps(ctx context.Context, _ model.PricingQuery) (*model.SourceResult, error) {
	m.Calls++
	if m.Panics {
		panic("mock adapter exploded")
	}
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result == nil {
		return &model.SourceResult{Source: m.Name, Sales: []model.SaleRecord{}}, nil
	}
	res := *m.Result
	res.Source = m.Name
	res.Sales = append([]model.SaleRecord(nil), m.Result.Sales...)
	return &res, nil
}
