package forecast

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"
)

// FeatureConfig controls which features are built from a series.
type FeatureConfig struct {
	Lags               []int   `yaml:"lags" json:"lags"`
	Windows            []int   `yaml:"windows" json:"windows"`
	GapTolerance       int     `yaml:"gap_tolerance_hours" json:"gap_tolerance_hours"`
	MinTrainingSamples int     `yaml:"min_training_samples" json:"min_training_samples"`
	TrendThreshold     float64 `yaml:"trend_threshold" json:"trend_threshold"`
	// MaxHorizonHours bounds a single prediction; 0 selects DefaultMaxHorizonHours.
	MaxHorizonHours int `yaml:"max_horizon_hours" json:"max_horizon_hours"`
}

// DefaultMaxHorizonHours is one week of hourly predictions.
const DefaultMaxHorizonHours = 168

// DefaultFeatureConfig returns the lags and windows used by the hourly model.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Lags:               []int{1, 2, 3, 6, 12, 24},
		Windows:            []int{3, 6, 12, 24},
		GapTolerance:       2,
		MinTrainingSamples: 24,
		TrendThreshold:     0.05,
		MaxHorizonHours:    DefaultMaxHorizonHours,
	}
}

// MaxHorizon returns the largest horizon Predict accepts.
func (c FeatureConfig) MaxHorizon() int {
	if c.MaxHorizonHours == 0 {
		return DefaultMaxHorizonHours
	}
	return c.MaxHorizonHours
}

func (c FeatureConfig) Validate() error {
	if len(c.Lags) == 0 {
		return fmt.Errorf("at least one lag is required")
	}
	seen := make(map[int]bool)
	for _, lag := range c.Lags {
		if lag < 1 {
			return fmt.Errorf("lag %d must be at least 1 hour", lag)
		}
		if seen[lag] {
			return fmt.Errorf("duplicate lag %d", lag)
		}
		seen[lag] = true
	}
	seen = make(map[int]bool)
	for _, w := range c.Windows {
		if w < 1 {
			return fmt.Errorf("window %d must be at least 1 hour", w)
		}
		if seen[w] {
			return fmt.Errorf("duplicate window %d", w)
		}
		seen[w] = true
	}
	if c.GapTolerance < 0 {
		return fmt.Errorf("gap tolerance %d must not be negative", c.GapTolerance)
	}
	if c.MinTrainingSamples < 5 {
		return fmt.Errorf("min training samples %d must be at least 5", c.MinTrainingSamples)
	}
	if c.MaxHorizonHours < 0 {
		return fmt.Errorf("max horizon %d must not be negative", c.MaxHorizonHours)
	}
	if c.TrendThreshold < 0 || math.IsNaN(c.TrendThreshold) || math.IsInf(c.TrendThreshold, 0) {
		return fmt.Errorf("trend threshold %v must be a non-negative number", c.TrendThreshold)
	}
	return nil
}

// Span is the number of hourly samples before the anchor a vector needs.
func (c FeatureConfig) Span() int {
	span := 0
	for _, lag := range c.Lags {
		span = max(span, lag)
	}
	for _, w := range c.Windows {
		span = max(span, w)
	}
	return span
}

// Names returns the feature names in vector order.
func (c FeatureConfig) Names() []string {
	names := []string{"hour", "day_of_week"}
	for _, lag := range c.Lags {
		names = append(names, "lag_"+strconv.Itoa(lag))
	}
	for _, w := range c.Windows {
		names = append(names, "rolling_mean_"+strconv.Itoa(w), "rolling_std_"+strconv.Itoa(w))
	}
	return names
}

func (c FeatureConfig) clone() FeatureConfig {
	out := c
	out.Lags = append([]int(nil), c.Lags...)
	out.Windows = append([]int(nil), c.Windows...)
	return out
}

// FeatureVector is the model input anchored at At.
type FeatureVector struct {
	At     time.Time `json:"at"`
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// FeatureBuilder turns a series into feature vectors. It holds no mutable
// state and is safe for concurrent use.
type FeatureBuilder struct {
	cfg   FeatureConfig
	names []string
	span  int
}

func NewFeatureBuilder(cfg FeatureConfig) (*FeatureBuilder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature config: %w", err)
	}
	cfg = cfg.clone()
	return &FeatureBuilder{cfg: cfg, names: cfg.Names(), span: cfg.Span()}, nil
}

// Names returns the feature names in vector order.
func (b *FeatureBuilder) Names() []string {
	return append([]string(nil), b.names...)
}

// Build returns the feature vector for predicting the value at `at`, using
// only samples strictly before it.
func (b *FeatureBuilder) Build(s *Series, at time.Time) (FeatureVector, error) {
	history, err := b.history(s, at)
	if err != nil {
		return FeatureVector{}, err
	}

	values := make([]float64, 0, len(b.names))
	values = append(values, float64(at.Hour()), float64(at.Weekday()))
	for _, lag := range b.cfg.Lags {
		values = append(values, history[lag-1])
	}
	for _, w := range b.cfg.Windows {
		mean, std := stat.PopMeanStdDev(history[:w], nil)
		values = append(values, mean, std)
	}

	return FeatureVector{At: at, Names: b.Names(), Values: values}, nil
}

// history returns the hourly values at at-1h ... at-span h, index k holding
// at-(k+1)h. Short gaps are interpolated linearly.
func (b *FeatureBuilder) history(s *Series, at time.Time) ([]float64, error) {
	values := make([]float64, b.span)
	known := make([]bool, b.span)

	// nearest sample older than the span, used to bridge a gap at the far end
	beyond, beyondValue := -1, 0.0

	for i := s.before(at) - 1; i >= 0; i-- {
		p := s.points[i]
		offset := int(math.Round(at.Sub(p.Time).Hours()))
		if offset < 1 {
			continue
		}
		if offset > b.span {
			beyond, beyondValue = offset-1, p.Value
			break
		}
		if !known[offset-1] {
			values[offset-1] = p.Value
			known[offset-1] = true
		}
	}

	if !known[0] {
		return nil, fmt.Errorf("%w: no sample at %s", ErrInsufficientHistory, at.Add(-time.Hour).Format(time.RFC3339))
	}
	if !known[b.span-1] && beyond < 0 {
		return nil, fmt.Errorf("%w: need %d hourly samples before %s", ErrInsufficientHistory, b.span, at.Format(time.RFC3339))
	}

	last := 0
	for k := 1; k < b.span; k++ {
		if !known[k] {
			continue
		}
		if err := b.fill(values, at, last, k, values[k]); err != nil {
			return nil, err
		}
		last = k
	}
	if last < b.span-1 {
		if err := b.fill(values, at, last, beyond, beyondValue); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// fill interpolates the indexes strictly between from and to.
func (b *FeatureBuilder) fill(values []float64, at time.Time, from, to int, toValue float64) error {
	missing := to - from - 1
	if missing == 0 {
		return nil
	}
	if missing > b.cfg.GapTolerance {
		gapEnd := at.Add(-time.Duration(from+1) * time.Hour)
		return fmt.Errorf("%w: %d missing hours before %s, tolerance %d",
			ErrDataGapTooLarge, missing, gapEnd.Format(time.RFC3339), b.cfg.GapTolerance)
	}

	fromValue := values[from]
	for k := from + 1; k < to && k < len(values); k++ {
		frac := float64(k-from) / float64(to-from)
		values[k] = fromValue + (toValue-fromValue)*frac
	}
	return nil
}
