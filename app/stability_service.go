package app

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"flakewatch/adapters/stats/buckets"
	"flakewatch/adapters/stats/chisquare"
	"flakewatch/domain/core"
	"flakewatch/domain/stability"
	"flakewatch/internal"
	"flakewatch/ports"
)

// EntityResult enriches the core test result with the reporting fields the
// original summaries carried: overall rate, spike, event span, bucket detail.
type EntityResult struct {
	stability.TestResult
	TotalFailures int                `json:"total_failures"`
	TotalEvents   int                `json:"total_events"`
	FailureRate   float64            `json:"failure_rate"`
	Spike         float64            `json:"spike"`
	BucketCount   int                `json:"bucket_count"`
	FirstEvent    time.Time          `json:"first_event,omitempty"`
	LastEvent     time.Time          `json:"last_event,omitempty"`
	Buckets       []stability.Bucket `json:"buckets,omitempty"`
}

// Report is one full analysis pass over the requested window.
type Report struct {
	ID          uuid.UUID        `json:"id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Granularity core.Granularity `json:"granularity"`
	Results     []EntityResult   `json:"results"`
}

// StabilityService runs the full pipeline: fetch outcomes, aggregate into
// eligible buckets, compute the chi-square statistic, evaluate the survival
// function, and attach a verdict per entity.
type StabilityService struct {
	source ports.RunSource
	config stability.Config
	logger *internal.Logger
}

// NewStabilityService creates the service with explicit thresholds.
func NewStabilityService(source ports.RunSource, config stability.Config, logger *internal.Logger) *StabilityService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &StabilityService{source: source, config: config, logger: logger}
}

// Analyze evaluates every entity in the filtered window. Entities are
// independent, so evaluation runs concurrently; results are re-sorted by
// ascending p-value afterwards (undefined p-values last, ties by entity id).
// Per-entity problems never abort the batch.
func (s *StabilityService) Analyze(ctx context.Context, filter ports.RunFilter, granularity core.Granularity) (*Report, error) {
	outcomes, err := s.source.FetchOutcomes(ctx, filter)
	if err != nil {
		return nil, err
	}
	spans, err := s.source.FetchSpans(ctx, filter)
	if err != nil {
		return nil, err
	}
	spanByEntity := make(map[string]struct{ first, last time.Time }, len(spans))
	for _, sp := range spans {
		spanByEntity[sp.EntityID] = struct{ first, last time.Time }{sp.FirstEvent, sp.LastEvent}
	}

	aggregates := buckets.Aggregate(outcomes, granularity, s.config.MinBucketSize)

	results := make([]EntityResult, len(aggregates))
	g, _ := errgroup.WithContext(ctx)
	for i, agg := range aggregates {
		i, agg := i, agg
		g.Go(func() error {
			res := s.evaluate(agg)
			if sp, ok := spanByEntity[agg.EntityID]; ok {
				res.FirstEvent = sp.first
				res.LastEvent = sp.last
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortByPValue(results)

	return &Report{
		ID:          uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Granularity: granularity,
		Results:     results,
	}, nil
}

// AnalyzeEntity evaluates a single entity. Returns a missing-data error when
// the entity has no eligible buckets in the window.
func (s *StabilityService) AnalyzeEntity(ctx context.Context, entityID string, since time.Time, granularity core.Granularity) (*EntityResult, error) {
	report, err := s.Analyze(ctx, ports.RunFilter{EntityID: entityID, Since: since}, granularity)
	if err != nil {
		return nil, err
	}
	if len(report.Results) == 0 {
		return nil, core.NewMissingDataError(entityID, "no eligible buckets")
	}
	return &report.Results[0], nil
}

// evaluate is the verdict engine for one entity's aggregate.
func (s *StabilityService) evaluate(agg buckets.EntityAggregate) EntityResult {
	cells := agg.ExpectedCells()
	stat, df := chisquare.Statistic(cells)

	result := EntityResult{
		TestResult: stability.TestResult{
			EntityID:         agg.EntityID,
			ChiSquareStat:    stat,
			DegreesOfFreedom: df,
			Converged:        true,
		},
		TotalFailures: agg.Totals.Failures,
		TotalEvents:   agg.Totals.Total,
		FailureRate:   agg.Totals.FailureRate(),
		BucketCount:   len(agg.Buckets),
		Buckets:       agg.Buckets,
	}
	result.Spike = spike(agg)

	if df <= 0 {
		// Fewer than two eligible buckets: no meaningful comparison is
		// possible, so conservatively fail to reject stability.
		one := 1.0
		result.PValue = &one
		result.Verdict = stability.VerdictFailToReject
		return result
	}

	p, diag, err := chisquare.Survival(stat, df)
	if err != nil {
		// Malformed aggregates leave the p-value undefined; the batch
		// continues and the row reports its missing-data state.
		s.logger.Error("survival function failed for %s (stat=%v df=%d): %v", agg.EntityID, stat, df, err)
		result.Verdict = stability.VerdictUndefined
		return result
	}
	if !diag.Converged {
		s.logger.Warn("gamma evaluation hit iteration cap for %s (stat=%v df=%d, branch=%s)", agg.EntityID, stat, df, diag.Branch)
	}

	result.PValue = &p
	result.Converged = diag.Converged
	if p < s.config.Alpha {
		result.Verdict = stability.VerdictReject
	} else {
		result.Verdict = stability.VerdictFailToReject
	}
	return result
}

// spike is the worst bucket failure rate minus the overall rate.
func spike(agg buckets.EntityAggregate) float64 {
	rates := make([]float64, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		rates = append(rates, b.FailureRate())
	}
	worst, err := stats.Max(rates)
	if err != nil {
		return 0
	}
	return worst - agg.Totals.FailureRate()
}

// sortByPValue orders results ascending by p-value so the most significant
// shifts surface first. Undefined p-values sort last; ties break on entity id
// to keep output deterministic.
func sortByPValue(results []EntityResult) {
	sort.Slice(results, func(i, j int) bool {
		pi, pj := results[i].PValue, results[j].PValue
		switch {
		case pi == nil && pj == nil:
			return results[i].EntityID < results[j].EntityID
		case pi == nil:
			return false
		case pj == nil:
			return true
		case *pi != *pj:
			return *pi < *pj
		default:
			return results[i].EntityID < results[j].EntityID
		}
	})
}
