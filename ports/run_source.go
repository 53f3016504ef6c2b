package ports

import (
	"context"
	"time"

	"flakewatch/domain/run"
)

// RunFilter narrows which raw outcomes a source returns.
type RunFilter struct {
	// EntityID limits results to one entity when non-empty.
	EntityID string
	// Since excludes outcomes observed before this instant when non-zero.
	Since time.Time
}

// RunSource supplies raw run outcomes, already materialized. The analysis
// core never talks to storage directly; callers are responsible for snapshot
// isolation if the underlying source is concurrently updated.
type RunSource interface {
	// FetchOutcomes returns the matching outcomes.
	FetchOutcomes(ctx context.Context, filter RunFilter) ([]run.Outcome, error)
	// FetchSpans returns first/last event timestamps per matching entity.
	FetchSpans(ctx context.Context, filter RunFilter) ([]run.Span, error)
}
