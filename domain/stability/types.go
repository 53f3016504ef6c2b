package stability

import (
	"time"
)

// Verdict is the outcome of the per-entity chi-square stability test.
type Verdict string

const (
	// VerdictReject means failure rates differ significantly across periods.
	VerdictReject Verdict = "REJECT"
	// VerdictFailToReject means no significant difference was detected.
	VerdictFailToReject Verdict = "FAIL_TO_REJECT"
	// VerdictUndefined marks entities whose aggregates were missing or
	// malformed; distinct from the degrees-of-freedom short-circuit.
	VerdictUndefined Verdict = ""
)

// Config holds the test thresholds. Both are explicit inputs rather than
// constants so tests can sweep them.
type Config struct {
	// MinBucketSize excludes buckets with total <= this value.
	MinBucketSize int
	// Alpha is the p-value cutoff for a REJECT verdict.
	Alpha float64
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		MinBucketSize: 25,
		Alpha:         0.05,
	}
}

// Bucket is one (entity, period) pair with observed counts.
type Bucket struct {
	EntityID  string    `json:"entity_id"`
	Period    time.Time `json:"period"`
	Failures  int       `json:"failures"`
	Successes int       `json:"successes"`
}

func (b Bucket) Total() int {
	return b.Failures + b.Successes
}

func (b Bucket) FailureRate() float64 {
	if b.Total() == 0 {
		return 0
	}
	return float64(b.Failures) / float64(b.Total())
}

// EntityTotals sums counts across all eligible buckets for one entity.
type EntityTotals struct {
	Failures  int `json:"failures"`
	Successes int `json:"successes"`
	Total     int `json:"total"`
}

func (t EntityTotals) FailureRate() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Failures) / float64(t.Total)
}

// ExpectedCell pairs observed counts with the counts expected under the
// entity-wide failure rate applied to the bucket's total. The invariant
// ExpectedFailures + ExpectedSuccesses == bucket total holds up to rounding.
type ExpectedCell struct {
	Period            time.Time `json:"period"`
	ObservedFailures  float64   `json:"observed_failures"`
	ExpectedFailures  float64   `json:"expected_failures"`
	ObservedSuccesses float64   `json:"observed_successes"`
	ExpectedSuccesses float64   `json:"expected_successes"`
}

// TestResult is the core output of the stability test for one entity.
// PValue is nil when the required aggregates were missing.
type TestResult struct {
	EntityID         string   `json:"entity_id"`
	ChiSquareStat    float64  `json:"chi_square_stat"`
	DegreesOfFreedom int      `json:"degrees_of_freedom"`
	PValue           *float64 `json:"p_value"`
	Verdict          Verdict  `json:"verdict,omitempty"`
	// Converged is false when the gamma evaluator hit its iteration cap and
	// returned its best estimate.
	Converged bool `json:"converged"`
}

// Description renders the verdict the way the reference reports phrased it.
func (r TestResult) Description() string {
	switch r.Verdict {
	case VerdictReject:
		return "Reject Null Hypothesis: Rates are different across periods"
	case VerdictFailToReject:
		return "Fail to Reject Null Hypothesis: No significant difference in rates"
	default:
		return "No sufficient data to make a decision"
	}
}
