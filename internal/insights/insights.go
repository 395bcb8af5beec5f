package insights

import (
	"fmt"
	"math"

	"airwatch/internal/aqi"
)

// peakFactor marks a maximum this far above the mean as a notable peak.
const peakFactor = 1.5

// Generate builds short insights for a location from its dominant AQI
// result and the history of the dominant pollutant, oldest first.
func Generate(current aqi.Result, history []float64) []string {
	out := []string{
		fmt.Sprintf("Current air quality is %s with an AQI of %d", current.Category, current.AQI),
	}

	s, ok := ComputeStats(history)
	if !ok {
		return out
	}
	if s.Mean > 0 && s.Max > s.Mean*peakFactor {
		out = append(out, fmt.Sprintf("Peak pollution levels are %.1f, significantly higher than average", s.Max))
	}

	t := DetectTrend(history, DefaultTrendWindow)
	switch t.Direction {
	case Increasing:
		out = append(out, fmt.Sprintf("Air quality is worsening (↑%.1f%%)", math.Abs(t.ChangePercent)))
	case Decreasing:
		out = append(out, fmt.Sprintf("Air quality is improving (↓%.1f%%)", math.Abs(t.ChangePercent)))
	case Stable:
		out = append(out, "Air quality has been stable recently")
	}
	return out
}
