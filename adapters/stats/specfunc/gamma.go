// Package specfunc evaluates the regularized incomplete gamma function, the
// primitive behind the chi-square survival function. Two expansions are used
// depending on input regime: a direct series for the lower function when
// x < a+1, and a modified Lentz continued fraction for the upper function
// when x >= a+1. Each converges fastest in its own regime; crossing them over
// loses precision or stalls.
package specfunc

import (
	"math"

	"flakewatch/domain/core"
)

const (
	// maxIterations bounds both expansions. Hitting the cap returns the best
	// available estimate with Converged=false rather than failing; this is a
	// known approximation boundary, not an error.
	maxIterations = 100
	// epsilon is the relative convergence tolerance for both expansions.
	epsilon = 3.0e-7
	// tiny floors near-zero Lentz denominators to avoid division blow-up.
	tiny = 1.0e-30
)

// Branch identifies which expansion produced a result.
type Branch string

const (
	BranchSeries            Branch = "series"
	BranchContinuedFraction Branch = "continued_fraction"
)

// Diagnostics reports how the evaluation went. Callers use Converged to make
// iteration-cap exhaustion observable without treating it as fatal.
type Diagnostics struct {
	Branch     Branch `json:"branch"`
	Iterations int    `json:"iterations"`
	Converged  bool   `json:"converged"`
}

// UpperRegularized computes Q(a, x), the regularized upper incomplete gamma
// function, for a > 0 and x >= 0. The result lies in [0, 1].
func UpperRegularized(a, x float64) (float64, error) {
	q, _, err := UpperRegularizedDiag(a, x)
	return q, err
}

// UpperRegularizedDiag is UpperRegularized with convergence diagnostics.
func UpperRegularizedDiag(a, x float64) (float64, Diagnostics, error) {
	if a <= 0 || math.IsNaN(a) {
		return 0, Diagnostics{}, core.NewInvalidArgumentError("a", "must be positive")
	}
	if x < 0 || math.IsNaN(x) {
		return 0, Diagnostics{}, core.NewInvalidArgumentError("x", "must be non-negative")
	}

	if x < a+1 {
		p, diag := lowerSeries(a, x)
		return clampUnit(1 - p), diag, nil
	}
	q, diag := upperContinuedFraction(a, x)
	return clampUnit(q), diag, nil
}

// LowerRegularized computes P(a, x) = 1 - Q(a, x).
func LowerRegularized(a, x float64) (float64, error) {
	q, err := UpperRegularized(a, x)
	if err != nil {
		return 0, err
	}
	return 1 - q, nil
}

// lowerSeries evaluates P(a, x) by series expansion. Valid for x < a+1 where
// the term ratio x/(a+n) shrinks quickly.
func lowerSeries(a, x float64) (float64, Diagnostics) {
	diag := Diagnostics{Branch: BranchSeries}
	if x == 0 {
		diag.Converged = true
		return 0, diag
	}

	ap := a
	sum := 1.0 / a
	term := sum
	for n := 1; n <= maxIterations; n++ {
		ap++
		term *= x / ap
		sum += term
		diag.Iterations = n
		if math.Abs(term) < math.Abs(sum)*epsilon {
			diag.Converged = true
			break
		}
	}

	// exp(-x + a ln x - lnGamma(a)) keeps the leading factor stable where
	// Gamma(a) and x^a individually overflow.
	lg, _ := math.Lgamma(a)
	return sum * math.Exp(-x+a*math.Log(x)-lg), diag
}

// upperContinuedFraction evaluates Q(a, x) by the modified Lentz method.
// Valid for x >= a+1 where the fraction converges fastest.
func upperContinuedFraction(a, x float64) (float64, Diagnostics) {
	diag := Diagnostics{Branch: BranchContinuedFraction}

	b := x + 1 - a
	c := 1.0 / tiny
	d := 1.0 / b
	h := d
	for i := 1; i <= maxIterations; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1.0 / d
		del := d * c
		h *= del
		diag.Iterations = i
		if math.Abs(del-1) < epsilon {
			diag.Converged = true
			break
		}
	}

	lg, _ := math.Lgamma(a)
	return math.Exp(-x+a*math.Log(x)-lg) * h, diag
}

// clampUnit pins rounding spill just outside [0, 1] back onto the interval.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
