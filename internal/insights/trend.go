package insights

import "gonum.org/v1/gonum/stat"

type Direction string

const (
	Increasing       Direction = "increasing"
	Decreasing       Direction = "decreasing"
	Stable           Direction = "stable"
	InsufficientData Direction = "insufficient_data"
)

const (
	DefaultTrendWindow = 24
	// trendChangePercent is the relative change that counts as a trend
	trendChangePercent = 10.0
)

// Trend compares the rolling mean of the latest window with the one before it.
type Trend struct {
	Direction     Direction `json:"trend"`
	ChangePercent float64   `json:"change_percent"`
	RecentMean    float64   `json:"recent_mean"`
	PreviousMean  float64   `json:"previous_mean"`
}

// DetectTrend computes a rolling mean of size window over values and compares
// the average of its last window entries with the window before. Fewer than
// 2*window values report InsufficientData.
func DetectTrend(values []float64, window int) Trend {
	n := len(values)
	if window < 1 || n < 2*window {
		return Trend{Direction: InsufficientData}
	}

	// rolling[i] is the mean of values[i-window+1 : i+1]
	rolling := make([]float64, n)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		rolling[i] = sum / float64(window)
	}

	prevStart := n - 2*window
	if prevStart < window-1 {
		prevStart = window - 1
	}
	recent := stat.Mean(rolling[n-window:], nil)
	previous := stat.Mean(rolling[prevStart:n-window], nil)

	t := Trend{RecentMean: recent, PreviousMean: previous}
	switch {
	case previous != 0:
		t.ChangePercent = (recent - previous) / previous * 100
	case recent > 0:
		t.ChangePercent = 100
	}

	switch {
	case t.ChangePercent > trendChangePercent:
		t.Direction = Increasing
	case t.ChangePercent < -trendChangePercent:
		t.Direction = Decreasing
	default:
		t.Direction = Stable
	}
	return t
}
