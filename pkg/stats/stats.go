// Package stats implements the assumption checks and the two-sample
// comparison tests of the bidding experiment.
package stats

import (
	"math"

	"github.com/pkg/errors"
)

var (
	ErrInsufficientSample = errors.New("insufficient sample")
	ErrDegenerateSample   = errors.New("degenerate sample")
	ErrUnknownTestKind    = errors.New("unknown test kind")
)

// TestResult is the outcome of one statistical test invocation.
type TestResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	// DoF is set for t-tests only.
	DoF float64 `json:"dof,omitempty"`
	N1  int     `json:"n1"`
	N2  int     `json:"n2,omitempty"`
}

// clampP pins p into [0, 1]. Callers must have ruled out NaN.
func clampP(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}

// poly evaluates c[0] + c[1]*x + c[2]*x^2 + ...
func poly(c []float64, x float64) float64 {
	ret := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		ret = ret*x + c[i]
	}
	return ret
}
