package population

import (
	"context"
	"strings"
	"sync"

	"github.com/slabworth/compengine/internal/model"
)

// Request identifies the population report for one card at one
// company+grade.
type Request struct {
	PlayerName string
	Year       string
	Brand      string
	CardNumber string
	SetName    string
	Company    string
	Grade      string
}

// RequestFromQuery builds a population request from a graded pricing
// query. Callers must check query.Graded() first.
func RequestFromQuery(q model.PricingQuery) Request {
	return Request{
		PlayerName: q.PlayerName,
		Year:       q.Year,
		Brand:      q.Brand,
		CardNumber: q.CardNumber,
		SetName:    q.SetName,
		Company:    q.Grading.Company,
		Grade:      q.Grading.Grade,
	}
}

// Key is the deterministic identity of this request for snapshot
// storage.
func (r Request) Key() string {
	return strings.ToLower(strings.Join([]string{
		r.PlayerName, r.Year, r.Brand, r.CardNumber, r.Company, r.Grade,
	}, "|"))
}

// SnapshotStore persists population snapshots keyed by card identity
// plus grading company and grade. Implementations: MemoryStore here,
// PostgresStore in internal/popstore. Absence of a persistent store
// just means lookups are not cached across restarts.
type SnapshotStore interface {
	// Latest returns the most recent snapshot for the request, or nil
	// when none has been saved.
	Latest(ctx context.Context, req Request) (*model.PopulationSnapshot, error)

	// Save stores a snapshot. Snapshots are append-only; a newer one
	// supersedes rather than mutates.
	Save(ctx context.Context, req Request, snap *model.PopulationSnapshot) error
}

// MemoryStore keeps the latest snapshot per request in memory.
type MemoryStore struct {
	snaps map[string]*model.PopulationSnapshot
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]*model.PopulationSnapshot)}
}

func (s *MemoryStore) Latest(_ context.Context, req Request) (*model.PopulationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snaps[req.Key()], nil
}

func (s *MemoryStore) Save(_ context.Context, req Request, snap *model.PopulationSnapshot) error {
	s.mu.Lock()
	s.snaps[req.Key()] = snap
	s.mu.Unlock()
	return nil
}
