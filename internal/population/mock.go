package population

import (
	"context"

	"github.com/slabworth/compengine/internal/model"
)

// MockSource is a canned population source for tests and development.
type MockSource struct {
	CompanyName string
	Snapshot    *model.PopulationSnapshot
	Err         error
	Calls       int
}

func (m *MockSource) Company() string { return m.CompanyName }

func (m *MockSource) FetchPopulation(_ context.Context, _ Request) (*model.PopulationSnapshot, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Snapshot == nil {
		return nil, nil
	}
	// Hand out a copy so engine classification never mutates the fixture.
	snap := *m.Snapshot
	snap.GradeBreakdown = append([]model.GradeCount(nil), m.Snapshot.GradeBreakdown...)
	return &snap, nil
}
