package stats

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	lowSample  = []float64{2, 1, 3, 4}
	highSample = []float64{6, 5, 7, 9}
	weights    = []float64{148, 154, 158, 160, 161, 162, 166, 170, 182, 195, 236}
)

func TestShapiroWilk(t *testing.T) {
	for _, tc := range []struct {
		name string
		xs   []float64
		w, p float64
	}{
		{"n=3 exact", []float64{1, 2, 4}, 0.9642857142857146, 0.6368868450289714},
		{"n=3 equally spaced", []float64{3, 1, 2}, 1, 1},
		{"n=4", lowSample, 0.9929120068006195, 0.9718770576208986},
		{"n=4 skewed", highSample, 0.9713736654827061, 0.8499708188482655},
		{"n=5", []float64{665.21125, 315.08489, 458.08374, 487.09077, 441.03405}, 0.9388133582966818, 0.6575611982637957},
		{"n=11 right tail", weights, 0.7888146948353878, 0.006703814056502999},
		{"n=12 heavy outliers", []float64{1, 1, 1, 1, 1, 1, 1, 1, 2, 50, 100, 1000}, 0.38853470383474076, 2.974787508103205e-06},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := ShapiroWilk(tc.xs)
			require.NoError(t, err)
			assert.InDelta(t, tc.w, r.Statistic, 1e-6)
			assert.InDelta(t, tc.p, r.PValue, 1e-6)
			assert.Equal(t, len(tc.xs), r.N1)
		})
	}
}

func TestShapiroWilkDoesNotSortInput(t *testing.T) {
	xs := []float64{3, 1, 2}
	_, err := ShapiroWilk(xs)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, xs)
}

func TestShapiroWilkErrors(t *testing.T) {
	for _, xs := range [][]float64{nil, {1}, {1, 2}} {
		_, err := ShapiroWilk(xs)
		assert.True(t, errors.Is(err, ErrInsufficientSample), "%v: %v", xs, err)
	}
	_, err := ShapiroWilk([]float64{5, 5, 5})
	assert.True(t, errors.Is(err, ErrDegenerateSample))
}

func TestLevene(t *testing.T) {
	r, err := Levene(lowSample, highSample)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, r.Statistic, 1e-12)
	assert.InDelta(t, 0.6704121226595061, r.PValue, 1e-6)
	assert.Equal(t, 4, r.N1)
	assert.Equal(t, 4, r.N2)

	swapped, err := Levene(highSample, lowSample)
	require.NoError(t, err)
	assert.InDelta(t, r.Statistic, swapped.Statistic, 1e-12)
	assert.InDelta(t, r.PValue, swapped.PValue, 1e-12)
}

func TestLeveneErrors(t *testing.T) {
	_, err := Levene([]float64{1}, highSample)
	assert.True(t, errors.Is(err, ErrInsufficientSample))

	_, err = Levene([]float64{1, 1, 1}, []float64{2, 2, 2})
	assert.True(t, errors.Is(err, ErrDegenerateSample))
}

func TestCompareTTests(t *testing.T) {
	r, err := Compare(lowSample, highSample, ParametricEqualVar)
	require.NoError(t, err)
	assert.InDelta(t, -3.9703446152237674, r.Statistic, 1e-9)
	assert.InDelta(t, 0.0073640592242113214, r.PValue, 1e-9)
	assert.InDelta(t, 6, r.DoF, 1e-12)

	r, err = Compare(lowSample, highSample, ParametricUnequalVar)
	require.NoError(t, err)
	assert.InDelta(t, -3.9703446152237674, r.Statistic, 1e-9)
	assert.InDelta(t, 0.0085128631313781695, r.PValue, 1e-9)
	assert.InDelta(t, 5.584615384615385, r.DoF, 1e-9)
}

func TestCompareMannWhitney(t *testing.T) {
	r, err := Compare([]float64{2, 1, 3, 5}, []float64{12, 11, 13, 15}, NonParametric)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Statistic)
	assert.InDelta(t, 0.028571428571428577, r.PValue, 1e-9)

	r, err = Compare([]float64{2, 1, 3, 5}, []float64{0, 4, 6, 7}, NonParametric)
	require.NoError(t, err)
	assert.Equal(t, 5.0, r.Statistic)
	assert.InDelta(t, 0.48571428571428577, r.PValue, 1e-9)
}

func TestCompareSymmetry(t *testing.T) {
	for _, kind := range TestKinds {
		t.Run(string(kind), func(t *testing.T) {
			ab, err := Compare(weights, highSample, kind)
			require.NoError(t, err)
			ba, err := Compare(highSample, weights, kind)
			require.NoError(t, err)
			assert.InDelta(t, ab.PValue, ba.PValue, 1e-12)
			if kind == NonParametric {
				assert.Equal(t, float64(ab.N1*ab.N2), ab.Statistic+ba.Statistic)
			} else {
				assert.InDelta(t, -ab.Statistic, ba.Statistic, 1e-12)
				assert.Positive(t, ab.Statistic, "mean(weights) > mean(highSample)")
			}
		})
	}
}

func TestCompareDeterministicAndBounded(t *testing.T) {
	samples := [][]float64{lowSample, highSample, weights, {1, 1, 2}, {0.5, 1000, 3, 3}}
	for _, kind := range TestKinds {
		for _, a := range samples {
			for _, b := range samples {
				r1, err := Compare(a, b, kind)
				require.NoError(t, err)
				r2, err := Compare(a, b, kind)
				require.NoError(t, err)
				assert.Equal(t, r1, r2)
				assert.GreaterOrEqual(t, r1.PValue, 0.0)
				assert.LessOrEqual(t, r1.PValue, 1.0)
				assert.False(t, math.IsNaN(r1.Statistic))
			}
		}
	}
}

func TestCompareDegenerate(t *testing.T) {
	for _, kind := range TestKinds {
		_, err := Compare([]float64{7, 7, 7}, highSample, kind)
		assert.True(t, errors.Is(err, ErrDegenerateSample), "%s: %v", kind, err)
		_, err = Compare(highSample, []float64{7, 7, 7}, kind)
		assert.True(t, errors.Is(err, ErrDegenerateSample), "%s: %v", kind, err)
		_, err = Compare([]float64{1}, highSample, kind)
		assert.True(t, errors.Is(err, ErrInsufficientSample), "%s: %v", kind, err)
	}
	_, err := Compare(lowSample, highSample, TestKind("anova"))
	assert.True(t, errors.Is(err, ErrUnknownTestKind))
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{4, 1, 3, 2})
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.InDelta(t, 1.75, s.Q25, 1e-12)
	assert.InDelta(t, 2.5, s.Q50, 1e-12)
	assert.InDelta(t, 3.25, s.Q75, 1e-12)
	assert.Equal(t, 4.0, s.Max)

	one := Describe([]float64{9})
	assert.Equal(t, 9.0, one.Q75)
	assert.True(t, math.IsNaN(one.Std))

	assert.Equal(t, 0, Describe(nil).Count)
}

func TestWilsonInterval(t *testing.T) {
	z := 2.575829
	lo, hi := WilsonInterval(200, 200, z)
	assert.Greater(t, lo, 0.967)
	assert.InDelta(t, 1.0, hi, 1e-12)

	lo, hi = WilsonInterval(0, 200, z)
	assert.InDelta(t, 0, lo, 1e-9)
	assert.Less(t, hi, 0.04)

	lo, hi = WilsonInterval(50, 100, TwoSidedZ(0.05))
	assert.InDelta(t, 1-hi, lo, 1e-12)
	assert.Less(t, lo, 0.5)

	lo, hi = WilsonInterval(1, 0, z)
	assert.Zero(t, lo)
	assert.Zero(t, hi)
	assert.InDelta(t, 1.959964, TwoSidedZ(0.05), 1e-6)
}
