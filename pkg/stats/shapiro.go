package stats

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Royston (1995), algorithm AS R94.
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.07119, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// MaxShapiroWilk is the largest sample the p-value approximation was fitted for.
// Larger samples are still tested.
const MaxShapiroWilk = 5000

// ShapiroWilk tests the null hypothesis that sample was drawn from a normal
// distribution. Statistic is W.
func ShapiroWilk(sample []float64) (TestResult, error) {
	n := len(sample)
	if n < 3 {
		return TestResult{}, errors.Wrapf(ErrInsufficientSample, "shapiro-wilk needs at least 3 values, got %d", n)
	}
	x := append([]float64(nil), sample...)
	sort.Float64s(x)
	if x[0] == x[n-1] {
		return TestResult{}, errors.Wrapf(ErrDegenerateSample, "shapiro-wilk: all %d values equal %v", n, x[0])
	}

	a := shapiroCoefficients(n)
	mean := stat.Mean(x, nil)
	var ssq, b float64
	for _, v := range x {
		ssq += (v - mean) * (v - mean)
	}
	for i, ai := range a {
		b += ai * (x[n-1-i] - x[i])
	}
	w := math.Min(b*b/ssq, 1)
	return TestResult{Statistic: w, PValue: shapiroPValue(w, n), N1: n}, nil
}

// shapiroCoefficients returns the first n/2 weights; the rest mirror them.
func shapiroCoefficients(n int) []float64 {
	nn2 := n / 2
	a := make([]float64, nn2)
	if n == 3 {
		a[0] = math.Sqrt(0.5)
		return a
	}

	an25 := float64(n) + 0.25
	m := make([]float64, nn2)
	summ2 := 0.0
	for i := range m {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / an25)
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(float64(n))

	a1 := poly(swC1, rsn) - m[0]/ssumm2
	first := 1
	var fac float64
	if n > 5 {
		a2 := -m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
		first = 2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	a[0] = a1
	for i := first; i < nn2; i++ {
		a[i] = -m[i] / fac
	}
	return a
}

func shapiroPValue(w float64, n int) float64 {
	if n == 3 {
		// Exact for n = 3; W cannot fall below 3/4.
		return clampP(6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Pi/3))
	}
	an := float64(n)
	w1 := math.Log(1 - w)
	var m, s float64
	if n <= 11 {
		gamma := poly(swG, an)
		if w1 >= gamma {
			return 0
		}
		w1 = -math.Log(gamma - w1)
		m = poly(swC3, an)
		s = math.Exp(poly(swC4, an))
	} else {
		xx := math.Log(an)
		m = poly(swC5, xx)
		s = math.Exp(poly(swC6, xx))
	}
	return clampP(distuv.Normal{Mu: m, Sigma: s}.Survival(w1))
}
