// Package buckets turns raw run outcomes into the contingency buckets and
// expected-value cells the chi-square test consumes.
package buckets

import (
	"sort"

	"flakewatch/domain/core"
	"flakewatch/domain/run"
	"flakewatch/domain/stability"
)

// EntityAggregate holds the eligible buckets and their totals for one entity.
// Buckets are sorted by period ascending; totals cover eligible buckets only.
type EntityAggregate struct {
	EntityID string
	Buckets  []stability.Bucket
	Totals   stability.EntityTotals
}

// ExpectedCells derives the per-bucket expected counts from the entity-wide
// failure rate applied to each bucket's total.
func (a EntityAggregate) ExpectedCells() []stability.ExpectedCell {
	cells := make([]stability.ExpectedCell, 0, len(a.Buckets))
	grand := float64(a.Totals.Total)
	for _, b := range a.Buckets {
		share := float64(b.Total()) / grand
		cells = append(cells, stability.ExpectedCell{
			Period:            b.Period,
			ObservedFailures:  float64(b.Failures),
			ExpectedFailures:  float64(a.Totals.Failures) * share,
			ObservedSuccesses: float64(b.Successes),
			ExpectedSuccesses: float64(a.Totals.Successes) * share,
		})
	}
	return cells
}

// Aggregate buckets outcomes by (entity, period), drops low-volume buckets
// before entity totals are computed, and returns one aggregate per entity
// that still has at least one eligible bucket. Entities with none are absent
// from the result, not zero-filled.
//
// The output is deterministic: aggregates sorted by entity id, buckets by
// period, independent of input order.
func Aggregate(outcomes []run.Outcome, granularity core.Granularity, minBucketSize int) []EntityAggregate {
	type key struct {
		entity string
		period int64
	}

	counts := make(map[key]*stability.Bucket)
	for _, o := range outcomes {
		period := granularity.TruncateUTC(o.Snapshot)
		k := key{entity: o.EntityID, period: period.UnixNano()}
		b, ok := counts[k]
		if !ok {
			b = &stability.Bucket{EntityID: o.EntityID, Period: period}
			counts[k] = b
		}
		if o.Failed {
			b.Failures++
		} else {
			b.Successes++
		}
	}

	byEntity := make(map[string][]stability.Bucket)
	for _, b := range counts {
		// Low-volume periods neither count as evidence nor dilute the
		// expected-rate baseline. Strict threshold: total must exceed it.
		if b.Total() <= minBucketSize {
			continue
		}
		byEntity[b.EntityID] = append(byEntity[b.EntityID], *b)
	}

	aggregates := make([]EntityAggregate, 0, len(byEntity))
	for entity, bs := range byEntity {
		sort.Slice(bs, func(i, j int) bool { return bs[i].Period.Before(bs[j].Period) })

		var totals stability.EntityTotals
		for _, b := range bs {
			totals.Failures += b.Failures
			totals.Successes += b.Successes
			totals.Total += b.Total()
		}

		aggregates = append(aggregates, EntityAggregate{
			EntityID: entity,
			Buckets:  bs,
			Totals:   totals,
		})
	}
	sort.Slice(aggregates, func(i, j int) bool { return aggregates[i].EntityID < aggregates[j].EntityID })

	return aggregates
}
