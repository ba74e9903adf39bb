package stats

import (
	"math"

	mstats "github.com/aclements/go-moremath/stats"
	"github.com/pkg/errors"
)

// TestKind names the two-sample procedure used to compare group means.
type TestKind string

const (
	// ParametricEqualVar is Student's independent t-test with pooled variance.
	ParametricEqualVar TestKind = "ttest_pooled"
	// ParametricUnequalVar is Welch's t-test.
	ParametricUnequalVar TestKind = "ttest_welch"
	// NonParametric is the Mann-Whitney U test.
	NonParametric TestKind = "mann_whitney_u"
)

var TestKinds = []TestKind{ParametricEqualVar, ParametricUnequalVar, NonParametric}

func (k TestKind) Title() string {
	switch k {
	case ParametricEqualVar:
		return "Independent two-sample t-test (pooled variance)"
	case ParametricUnequalVar:
		return "Welch's t-test (unequal variances)"
	case NonParametric:
		return "Mann-Whitney U test"
	}
	return string(k)
}

// Compare runs the two-sided test named by kind on a and b. For t-tests the
// statistic's sign follows mean(a) - mean(b); for the U test the statistic is
// U for a, and swapping the samples yields N1*N2 - U with the same p-value.
func Compare(a, b []float64, kind TestKind) (TestResult, error) {
	if len(a) < 2 || len(b) < 2 {
		return TestResult{}, errors.Wrapf(ErrInsufficientSample, "%s needs at least 2 values per group, got %d and %d", kind, len(a), len(b))
	}
	if constant(a) || constant(b) {
		return TestResult{}, errors.Wrapf(ErrDegenerateSample, "%s: a sample has zero variance", kind)
	}

	var res TestResult
	switch kind {
	case ParametricEqualVar, ParametricUnequalVar:
		test := mstats.TwoSampleTTest
		if kind == ParametricUnequalVar {
			test = mstats.TwoSampleWelchTTest
		}
		r, err := test(mstats.Sample{Xs: a}, mstats.Sample{Xs: b}, mstats.LocationDiffers)
		if err != nil {
			return TestResult{}, mapMoremathErr(err, kind)
		}
		res = TestResult{Statistic: r.T, PValue: r.P, DoF: r.DoF, N1: r.N1, N2: r.N2}
	case NonParametric:
		r, err := mstats.MannWhitneyUTest(a, b, mstats.LocationDiffers)
		if err != nil {
			return TestResult{}, mapMoremathErr(err, kind)
		}
		res = TestResult{Statistic: r.U, PValue: r.P, N1: r.N1, N2: r.N2}
	default:
		return TestResult{}, errors.Wrapf(ErrUnknownTestKind, "%q", kind)
	}

	if math.IsNaN(res.Statistic) || math.IsNaN(res.PValue) {
		return TestResult{}, errors.Wrapf(ErrDegenerateSample, "%s: undefined result", kind)
	}
	res.PValue = clampP(res.PValue)
	return res, nil
}

func mapMoremathErr(err error, kind TestKind) error {
	switch err {
	case mstats.ErrZeroVariance, mstats.ErrSamplesEqual:
		return errors.Wrapf(ErrDegenerateSample, "%s: %v", kind, err)
	case mstats.ErrSampleSize:
		return errors.Wrapf(ErrInsufficientSample, "%s: %v", kind, err)
	}
	return errors.Wrapf(err, "%s", kind)
}
