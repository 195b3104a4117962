package evidence

import (
	"sort"

	"pathmind/internal/util"
)

// Spread summarizes the distribution of potency values for one target.
type Spread struct {
	Min    float64
	Median float64
	Max    float64
	IQR    float64
}

// Median returns the median of values. Returns 0 for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	ordered := sortedCopy(values)
	mid := len(ordered) / 2
	if len(ordered)%2 == 1 {
		return ordered[mid]
	}
	return (ordered[mid-1] + ordered[mid]) / 2
}

// Percentile returns the q-quantile (q in [0,1]) of values using linear
// interpolation between closest ranks.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}
	ordered := sortedCopy(values)
	pos := float64(len(ordered)-1) * q
	lower := int(pos)
	upper := util.Min(lower+1, len(ordered)-1)
	if upper == lower {
		return ordered[lower]
	}
	weight := pos - float64(lower)
	return ordered[lower]*(1-weight) + ordered[upper]*weight
}

// AssaySpread computes min/median/max/iqr over the potency values of one
// target. The IQR is rounded so repeated runs export identical values.
func AssaySpread(values []float64) Spread {
	if len(values) == 0 {
		return Spread{}
	}
	ordered := sortedCopy(values)
	return Spread{
		Min:    ordered[0],
		Median: Median(ordered),
		Max:    ordered[len(ordered)-1],
		IQR:    util.Round6(Percentile(ordered, 0.75) - Percentile(ordered, 0.25)),
	}
}

func sortedCopy(values []float64) []float64 {
	ordered := make([]float64, len(values))
	copy(ordered, values)
	sort.Float64s(ordered)
	return ordered
}
