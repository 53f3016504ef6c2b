package testkit

import (
	"context"
	"sort"

	"flakewatch/domain/run"
	"flakewatch/ports"
)

// MemorySource is an in-memory ports.RunSource over a fixed outcome slice.
type MemorySource struct {
	Outcomes []run.Outcome
}

// NewMemorySource wraps outcomes in a RunSource.
func NewMemorySource(outcomes []run.Outcome) *MemorySource {
	return &MemorySource{Outcomes: outcomes}
}

// FetchOutcomes returns outcomes matching the filter.
func (s *MemorySource) FetchOutcomes(_ context.Context, filter ports.RunFilter) ([]run.Outcome, error) {
	var matched []run.Outcome
	for _, o := range s.Outcomes {
		if !matches(o, filter) {
			continue
		}
		matched = append(matched, o)
	}
	return matched, nil
}

// FetchSpans returns first/last event timestamps per matching entity.
func (s *MemorySource) FetchSpans(_ context.Context, filter ports.RunFilter) ([]run.Span, error) {
	spans := make(map[string]*run.Span)
	for _, o := range s.Outcomes {
		if !matches(o, filter) {
			continue
		}
		sp, ok := spans[o.EntityID]
		if !ok {
			spans[o.EntityID] = &run.Span{EntityID: o.EntityID, FirstEvent: o.Snapshot, LastEvent: o.Snapshot}
			continue
		}
		if o.Snapshot.Before(sp.FirstEvent) {
			sp.FirstEvent = o.Snapshot
		}
		if o.Snapshot.After(sp.LastEvent) {
			sp.LastEvent = o.Snapshot
		}
	}

	out := make([]run.Span, 0, len(spans))
	for _, sp := range spans {
		out = append(out, *sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

func matches(o run.Outcome, filter ports.RunFilter) bool {
	if filter.EntityID != "" && o.EntityID != filter.EntityID {
		return false
	}
	if !filter.Since.IsZero() && o.Snapshot.Before(filter.Since) {
		return false
	}
	return true
}

var _ ports.RunSource = (*MemorySource)(nil)
