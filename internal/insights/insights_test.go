package insights

import (
	"math"
	"reflect"
	"testing"
	"time"

	"airwatch/internal/aqi"
)

func TestComputeStats(t *testing.T) {
	if _, ok := ComputeStats(nil); ok {
		t.Error("ComputeStats(nil) ok = true, want false")
	}

	tests := []struct {
		name   string
		values []float64
		want   Stats
	}{
		{
			name:   "single value",
			values: []float64{7},
			want:   Stats{Mean: 7, Median: 7, Min: 7, Max: 7, Std: 0, Count: 1},
		},
		{
			name:   "even count",
			values: []float64{4, 1, 3, 2},
			want:   Stats{Mean: 2.5, Median: 2.5, Min: 1, Max: 4, Std: math.Sqrt(5.0 / 3.0), Count: 4},
		},
		{
			name:   "odd count",
			values: []float64{9, 1, 5},
			want:   Stats{Mean: 5, Median: 5, Min: 1, Max: 9, Std: 4, Count: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ComputeStats(tt.values)
			if !ok {
				t.Fatal("ComputeStats() ok = false")
			}
			if math.Abs(got.Std-tt.want.Std) > 1e-9 {
				t.Errorf("ComputeStats().Std = %v, want %v", got.Std, tt.want.Std)
			}
			got.Std, tt.want.Std = 0, 0
			if got != tt.want {
				t.Errorf("ComputeStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDetectTrend(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		window     int
		want       Direction
		wantChange float64
	}{
		{
			name:   "too short",
			values: []float64{1, 2, 3},
			window: 2,
			want:   InsufficientData,
		},
		{
			name:       "flat",
			values:     []float64{10, 10, 10, 10},
			window:     2,
			want:       Stable,
			wantChange: 0,
		},
		{
			name:       "falling",
			values:     []float64{20, 20, 10, 10},
			window:     2,
			want:       Decreasing,
			wantChange: -37.5,
		},
		{
			name:       "rising from zero",
			values:     []float64{0, 0, 0, 5},
			window:     2,
			want:       Increasing,
			wantChange: 100,
		},
		{
			name:       "step up over a day",
			values:     append(repeat(10, 24), repeat(20, 24)...),
			window:     24,
			want:       Increasing,
			wantChange: 52.0833,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectTrend(tt.values, tt.window)
			if got.Direction != tt.want {
				t.Errorf("DetectTrend().Direction = %v, want %v", got.Direction, tt.want)
			}
			if math.Abs(got.ChangePercent-tt.wantChange) > 1e-3 {
				t.Errorf("DetectTrend().ChangePercent = %v, want %v", got.ChangePercent, tt.wantChange)
			}
		})
	}
}

func TestSpikeDetector(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	readings := func(values ...float64) []aqi.Reading {
		out := make([]aqi.Reading, len(values))
		for i, v := range values {
			out[i] = aqi.NewReading(aqi.PM25, v, base.Add(time.Duration(i)*time.Hour))
		}
		return out
	}

	d := NewSpikeDetector(0)
	if d.zScoreThreshold != DefaultZScoreThreshold {
		t.Errorf("NewSpikeDetector(0) threshold = %v, want %v", d.zScoreThreshold, DefaultZScoreThreshold)
	}

	// baseline mean 10, sample std sqrt(2)
	baseline := readings(10, 12, 8, 11, 9, 10)
	spikes := d.Detect(baseline, readings(10, 14, 16, 7))

	wantSeverity := []string{"medium", "high", "low"}
	if len(spikes) != len(wantSeverity) {
		t.Fatalf("Detect() returned %d spikes, want %d: %v", len(spikes), len(wantSeverity), spikes)
	}
	for i, s := range spikes {
		if s.Severity != wantSeverity[i] {
			t.Errorf("Detect()[%d].Severity = %v, want %v (z=%.2f)", i, s.Severity, wantSeverity[i], s.ZScore)
		}
	}
	if spikes[2].ZScore >= 0 {
		t.Errorf("Detect()[2].ZScore = %v, want negative", spikes[2].ZScore)
	}

	if got := d.Detect(readings(5, 5, 5), readings(50)); got != nil {
		t.Errorf("Detect() flat baseline = %v, want nil", got)
	}
	if got := d.Detect(readings(1, 2), readings(50)); got != nil {
		t.Errorf("Detect() short baseline = %v, want nil", got)
	}
}

func TestCalculateZScore(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		mean   float64
		stdDev float64
		want   float64
	}{
		{"value above mean", 100.0, 50.0, 25.0, 2.0},
		{"value below mean", 25.0, 50.0, 25.0, -1.0},
		{"value equals mean", 50.0, 50.0, 25.0, 0.0},
		{"zero standard deviation", 50.0, 50.0, 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateZScore(tt.value, tt.mean, tt.stdDev)
			if got != tt.want {
				t.Errorf("CalculateZScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	current := aqi.Result{AQI: 160, Category: aqi.Unhealthy}

	tests := []struct {
		name    string
		history []float64
		want    []string
	}{
		{
			name:    "no history",
			history: nil,
			want:    []string{"Current air quality is Unhealthy with an AQI of 160"},
		},
		{
			name:    "short history with a peak",
			history: []float64{10, 10, 10, 40},
			want: []string{
				"Current air quality is Unhealthy with an AQI of 160",
				"Peak pollution levels are 40.0, significantly higher than average",
			},
		},
		{
			name:    "worsening over two days",
			history: append(repeat(10, 24), repeat(20, 24)...),
			want: []string{
				"Current air quality is Unhealthy with an AQI of 160",
				"Air quality is worsening (↑52.1%)",
			},
		},
		{
			name:    "stable",
			history: repeat(12, 48),
			want: []string{
				"Current air quality is Unhealthy with an AQI of 160",
				"Air quality has been stable recently",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(current, tt.history)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
