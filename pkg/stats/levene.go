package stats

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Levene tests the null hypothesis that a and b have equal variances, using
// absolute deviations from each group's median (the Brown-Forsythe form).
// Statistic follows F(1, N-2) under the null.
func Levene(a, b []float64) (TestResult, error) {
	if len(a) < 2 || len(b) < 2 {
		return TestResult{}, errors.Wrapf(ErrInsufficientSample, "levene needs at least 2 values per group, got %d and %d", len(a), len(b))
	}
	za, zb := absDeviations(a), absDeviations(b)
	ma, mb := stat.Mean(za, nil), stat.Mean(zb, nil)
	n1, n2 := float64(len(a)), float64(len(b))
	total := n1 + n2
	grand := (n1*ma + n2*mb) / total

	between := n1*(ma-grand)*(ma-grand) + n2*(mb-grand)*(mb-grand)
	within := 0.0
	for _, z := range za {
		within += (z - ma) * (z - ma)
	}
	for _, z := range zb {
		within += (z - mb) * (z - mb)
	}
	if within == 0 {
		return TestResult{}, errors.Wrap(ErrDegenerateSample, "levene: deviations from the median are constant within each group")
	}

	w := (total - 2) * between / within
	p := distuv.F{D1: 1, D2: total - 2}.Survival(w)
	if math.IsNaN(p) {
		return TestResult{}, errors.Wrapf(ErrDegenerateSample, "levene: undefined p-value for W=%v", w)
	}
	return TestResult{Statistic: w, PValue: clampP(p), N1: len(a), N2: len(b)}, nil
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func absDeviations(xs []float64) []float64 {
	med := median(xs)
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = math.Abs(v - med)
	}
	return out
}
