package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flakewatch/domain/core"
	"flakewatch/domain/run"
	"flakewatch/domain/stability"
	"flakewatch/internal/testkit"
	"flakewatch/ports"
)

func monthOfOutcomes(entity string, month time.Time, failures, successes int) []run.Outcome {
	outcomes := make([]run.Outcome, 0, failures+successes)
	for i := 0; i < failures+successes; i++ {
		outcomes = append(outcomes, run.Outcome{
			EntityID: entity,
			Snapshot: month.Add(time.Duration(i) * time.Hour),
			Failed:   i < failures,
		})
	}
	return outcomes
}

func newService(outcomes []run.Outcome) *StabilityService {
	return NewStabilityService(testkit.NewMemorySource(outcomes), stability.DefaultConfig(), nil)
}

func TestAnalyze_DetectsShiftedFailureRate(t *testing.T) {
	// Reference scenario: three monthly buckets of 100 runs with 5, 6 and 40
	// failures. Expected failures are 17 per bucket; the statistic lands far
	// beyond the df=2 critical value and the verdict is REJECT.
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var outcomes []run.Outcome
	outcomes = append(outcomes, monthOfOutcomes("E", jan, 5, 95)...)
	outcomes = append(outcomes, monthOfOutcomes("E", jan.AddDate(0, 1, 0), 6, 94)...)
	outcomes = append(outcomes, monthOfOutcomes("E", jan.AddDate(0, 2, 0), 40, 60)...)

	report, err := newService(outcomes).Analyze(context.Background(), ports.RunFilter{}, core.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	require.Equal(t, "E", res.EntityID)
	require.Equal(t, 2, res.DegreesOfFreedom)
	require.InDelta(t, 56.2722, res.ChiSquareStat, 1e-3)
	require.Greater(t, res.ChiSquareStat, 5.99)
	require.NotNil(t, res.PValue)
	require.Less(t, *res.PValue, 0.05)
	require.Equal(t, stability.VerdictReject, res.Verdict)
	require.True(t, res.Converged)

	require.Equal(t, 51, res.TotalFailures)
	require.Equal(t, 300, res.TotalEvents)
	require.InDelta(t, 0.17, res.FailureRate, 1e-9)
	require.InDelta(t, 0.23, res.Spike, 1e-9) // worst bucket 0.40 vs overall 0.17
	require.Equal(t, 3, res.BucketCount)
	require.Len(t, res.Buckets, 3)
}

func TestAnalyze_StableEntityFailsToReject(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var outcomes []run.Outcome
	for m := 0; m < 3; m++ {
		outcomes = append(outcomes, monthOfOutcomes("steady", jan.AddDate(0, m, 0), 10, 90)...)
	}

	report, err := newService(outcomes).Analyze(context.Background(), ports.RunFilter{}, core.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	require.Equal(t, 0.0, res.ChiSquareStat)
	require.NotNil(t, res.PValue)
	require.Equal(t, 1.0, *res.PValue)
	require.Equal(t, stability.VerdictFailToReject, res.Verdict)
}

func TestAnalyze_SingleBucketShortCircuits(t *testing.T) {
	// One eligible bucket means zero degrees of freedom: p-value is defined
	// as 1.0 and the conservative verdict stands, evaluator untouched.
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	outcomes := monthOfOutcomes("lonely", jan, 15, 15)

	report, err := newService(outcomes).Analyze(context.Background(), ports.RunFilter{}, core.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	require.Equal(t, 0, res.DegreesOfFreedom)
	require.NotNil(t, res.PValue)
	require.Equal(t, 1.0, *res.PValue)
	require.Equal(t, stability.VerdictFailToReject, res.Verdict)
}

func TestAnalyze_ResultsSortedByAscendingPValue(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var outcomes []run.Outcome
	// shifty: strong shift, tiny p-value
	outcomes = append(outcomes, monthOfOutcomes("shifty", jan, 5, 95)...)
	outcomes = append(outcomes, monthOfOutcomes("shifty", jan.AddDate(0, 1, 0), 40, 60)...)
	// steady: identical buckets, p = 1
	outcomes = append(outcomes, monthOfOutcomes("steady", jan, 10, 90)...)
	outcomes = append(outcomes, monthOfOutcomes("steady", jan.AddDate(0, 1, 0), 10, 90)...)
	// mild: small wobble in between
	outcomes = append(outcomes, monthOfOutcomes("mild", jan, 10, 90)...)
	outcomes = append(outcomes, monthOfOutcomes("mild", jan.AddDate(0, 1, 0), 13, 87)...)

	report, err := newService(outcomes).Analyze(context.Background(), ports.RunFilter{}, core.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	require.Equal(t, "shifty", report.Results[0].EntityID)
	require.Equal(t, "mild", report.Results[1].EntityID)
	require.Equal(t, "steady", report.Results[2].EntityID)
	for i := 1; i < len(report.Results); i++ {
		require.LessOrEqual(t, *report.Results[i-1].PValue, *report.Results[i].PValue)
	}
}

func TestAnalyze_AttachesEventSpans(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	outcomes := monthOfOutcomes("spanned", jan, 10, 50)
	outcomes = append(outcomes, monthOfOutcomes("spanned", jan.AddDate(0, 1, 0), 10, 50)...)

	report, err := newService(outcomes).Analyze(context.Background(), ports.RunFilter{}, core.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	require.Equal(t, jan, res.FirstEvent)
	require.Equal(t, jan.AddDate(0, 1, 0).Add(59*time.Hour), res.LastEvent)
}

func TestAnalyzeEntity_MissingDataDoesNotPanic(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	outcomes := monthOfOutcomes("present", jan, 10, 50)

	svc := newService(outcomes)
	_, err := svc.AnalyzeEntity(context.Background(), "absent", time.Time{}, core.GranularityMonth)
	require.Error(t, err)
	require.True(t, core.IsMissingData(err))

	// sparse history below the bucket threshold is also missing data
	sparse := newService(monthOfOutcomes("tiny", jan, 2, 3))
	_, err = sparse.AnalyzeEntity(context.Background(), "tiny", time.Time{}, core.GranularityMonth)
	require.True(t, core.IsMissingData(err))
}

func TestAnalyze_GeneratedShiftSurfacesFirst(t *testing.T) {
	cfg := testkit.DefaultGeneratorConfig()
	outcomes := testkit.NewGenerator(cfg).Generate()

	report, err := newService(outcomes).Analyze(context.Background(), ports.RunFilter{}, core.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, report.Results, cfg.Entities)

	top := report.Results[0]
	require.Equal(t, cfg.ShiftEntity, top.EntityID)
	require.Equal(t, stability.VerdictReject, top.Verdict)
	require.NotNil(t, top.PValue)
	require.Less(t, *top.PValue, 0.001)
	require.Greater(t, top.Spike, 0.05)
}

func TestAnalyze_SinceFilterNarrowsWindow(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	apr := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	var outcomes []run.Outcome
	outcomes = append(outcomes, monthOfOutcomes("windowed", jan, 40, 60)...)
	outcomes = append(outcomes, monthOfOutcomes("windowed", apr, 5, 95)...)
	outcomes = append(outcomes, monthOfOutcomes("windowed", apr.AddDate(0, 1, 0), 6, 94)...)

	report, err := newService(outcomes).Analyze(context.Background(), ports.RunFilter{Since: apr}, core.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	require.Equal(t, 2, report.Results[0].BucketCount)
	require.Equal(t, 11, report.Results[0].TotalFailures)
}
