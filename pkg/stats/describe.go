package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summary is the count/mean/std/min/quartiles/max description of a column.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Q25   float64 `json:"q25"`
	Q50   float64 `json:"q50"`
	Q75   float64 `json:"q75"`
	Max   float64 `json:"max"`
}

// Describe summarises xs. Std uses n-1; quartiles interpolate linearly
// between closest ranks. An empty column gives NaN everywhere but Count.
func Describe(xs []float64) Summary {
	if len(xs) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	std := math.NaN()
	if len(s) > 1 {
		std = stat.StdDev(s, nil)
	}
	return Summary{
		Count: len(s),
		Mean:  stat.Mean(s, nil),
		Std:   std,
		Min:   s[0],
		Q25:   quantileSorted(s, 0.25),
		Q50:   quantileSorted(s, 0.5),
		Q75:   quantileSorted(s, 0.75),
		Max:   s[len(s)-1],
	}
}

func quantileSorted(s []float64, q float64) float64 {
	pos := q * float64(len(s)-1)
	lo := math.Floor(pos)
	i := int(lo)
	if i+1 >= len(s) {
		return s[len(s)-1]
	}
	return s[i] + (pos-lo)*(s[i+1]-s[i])
}

// WilsonInterval is the Wilson score interval for the proportion
// successes/trials. Counts may be fractional.
func WilsonInterval(successes, trials, z float64) (lo, hi float64) {
	if trials <= 0 {
		return 0, 0
	}
	p := math.Max(0, math.Min(1, successes/trials))
	den := 1 + z*z/trials
	center := p + z*z/(2*trials)
	rad := z * math.Sqrt((p*(1-p)+z*z/(4*trials))/trials)
	return math.Max(0, (center-rad)/den), math.Min(1, (center+rad)/den)
}

// TwoSidedZ is the standard normal quantile leaving alpha/2 in each tail.
func TwoSidedZ(alpha float64) float64 {
	return distuv.UnitNormal.Quantile(1 - alpha/2)
}
