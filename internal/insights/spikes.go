package insights

import (
	"math"
	"time"

	"airwatch/internal/aqi"

	"gonum.org/v1/gonum/stat"
)

// DefaultZScoreThreshold flags values more than 2 std devs from the mean.
const DefaultZScoreThreshold = 2.0

// Spike is a reading far from the baseline of its series.
type Spike struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	ZScore    float64   `json:"z_score"`
	Severity  string    `json:"severity"`
}

// SpikeDetector finds spikes in recent readings against a longer baseline.
type SpikeDetector struct {
	zScoreThreshold float64
	minSamples      int
}

func NewSpikeDetector(threshold float64) *SpikeDetector {
	if threshold <= 0 {
		threshold = DefaultZScoreThreshold
	}
	return &SpikeDetector{zScoreThreshold: threshold, minSamples: 3}
}

// Detect computes mean and std dev over baseline and returns every recent
// reading whose |z| exceeds the threshold. A flat or short baseline yields none.
func (d *SpikeDetector) Detect(baseline, recent []aqi.Reading) []Spike {
	if len(baseline) < d.minSamples {
		return nil
	}

	values := make([]float64, len(baseline))
	for i, r := range baseline {
		values[i] = r.Concentration
	}
	mean, stdDev := stat.MeanStdDev(values, nil)
	if stdDev == 0 {
		return nil
	}

	var spikes []Spike
	for _, r := range recent {
		z := CalculateZScore(r.Concentration, mean, stdDev)
		if math.Abs(z) > d.zScoreThreshold {
			spikes = append(spikes, Spike{
				Timestamp: r.Timestamp,
				Value:     r.Concentration,
				ZScore:    z,
				Severity:  d.severity(z),
			})
		}
	}
	return spikes
}

// CalculateZScore calculates the Z-score for a value given mean and standard deviation
func CalculateZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// severity grades a z-score already past the threshold: more than one std dev
// beyond it is high, more than half is medium.
func (d *SpikeDetector) severity(zScore float64) string {
	excess := math.Abs(zScore) - d.zScoreThreshold
	if excess > 1.0 {
		return "high"
	} else if excess > 0.5 {
		return "medium"
	}
	return "low"
}
