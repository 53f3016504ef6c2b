// Package chisquare computes the goodness-of-fit statistic over per-period
// failure/success counts and its upper-tail probability.
package chisquare

import (
	"flakewatch/adapters/stats/specfunc"
	"flakewatch/domain/core"
	"flakewatch/domain/stability"
)

// Statistic computes the chi-square test statistic over the eligible cells of
// one entity, summing (observed-expected)^2/expected for both the failure and
// success columns. Cells with expected == 0 contribute nothing: no expected
// variation means no evidence either way.
//
// Degrees of freedom is one less than the number of eligible buckets; callers
// must short-circuit when it is <= 0 instead of calling Survival.
func Statistic(cells []stability.ExpectedCell) (stat float64, degreesOfFreedom int) {
	for _, cell := range cells {
		if cell.ExpectedFailures > 0 {
			d := cell.ObservedFailures - cell.ExpectedFailures
			stat += d * d / cell.ExpectedFailures
		}
		if cell.ExpectedSuccesses > 0 {
			d := cell.ObservedSuccesses - cell.ExpectedSuccesses
			stat += d * d / cell.ExpectedSuccesses
		}
	}
	return stat, len(cells) - 1
}

// Survival evaluates the chi-square survival function: the probability, under
// a stable failure rate, of a statistic at least as extreme as stat at the
// given degrees of freedom. This is Q(df/2, stat/2).
func Survival(stat float64, degreesOfFreedom int) (float64, specfunc.Diagnostics, error) {
	if degreesOfFreedom <= 0 {
		return 0, specfunc.Diagnostics{}, core.NewInvalidArgumentError("degrees_of_freedom", "must be positive")
	}
	if stat < 0 {
		return 0, specfunc.Diagnostics{}, core.NewInvalidArgumentError("stat", "must be non-negative")
	}
	return specfunc.UpperRegularizedDiag(float64(degreesOfFreedom)/2, stat/2)
}
