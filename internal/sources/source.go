package sources

import (
	"context"

	"github.com/slabworth/compengine/internal/model"
)

// Adapter is the contract every marketplace/pricing source implements.
// FetchComps should recover its own failures into an error return
// rather than panicking, and should consult the result cache itself if
// caching matters for that source; the orchestrator tolerates
// misbehavior regardless.
type Adapter interface {
	// Source returns the adapter's stable name, used for result
	// tagging, reliability weights, and cache keys.
	Source() string

	FetchComps(ctx context.Context, query model.PricingQuery) (*model.SourceResult, error)
}
