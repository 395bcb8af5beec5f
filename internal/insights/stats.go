// Package insights summarizes measurement history: statistics, long-run
// trend, spikes and short human readable insights.
package insights

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats describes a window of measurements.
type Stats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	// Std is the sample standard deviation, 0 for fewer than two values.
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// ComputeStats returns the statistics of values; ok is false when empty.
func ComputeStats(values []float64) (s Stats, ok bool) {
	if len(values) == 0 {
		return Stats{}, false
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s = Stats{
		Mean:   stat.Mean(values, nil),
		Median: median(sorted),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Count:  len(values),
	}
	if len(values) > 1 {
		s.Std = stat.StdDev(values, nil)
	}
	return s, true
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
