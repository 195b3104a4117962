package util

import "math"

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Round6 rounds to six decimal places. Scores and spreads are rounded once
// at computation time so exports reproduce byte-identical values.
func Round6(value float64) float64 {
	return math.Round(value*1e6) / 1e6
}
