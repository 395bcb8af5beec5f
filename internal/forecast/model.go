package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"airwatch/internal/aqi"
)

// Trend is the direction of a forecast.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// TrainingMetrics describes one training run.
type TrainingMetrics struct {
	Samples        int       `json:"samples"`
	TrainSamples   int       `json:"train_samples"`
	HoldoutSamples int       `json:"holdout_samples"`
	SkippedHistory int       `json:"skipped_history"`
	SkippedGaps    int       `json:"skipped_gaps"`
	TrainR2        float64   `json:"train_r2"`
	HoldoutR2      float64   `json:"holdout_r2"`
	Version        uint64    `json:"version"`
	TrainedAt      time.Time `json:"trained_at"`
}

// Summary aggregates the predicted values.
type Summary struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Result is a forecast over a horizon.
type Result struct {
	Location   string             `json:"location"`
	Pollutant  aqi.Pollutant      `json:"pollutant"`
	Points     []Point            `json:"points"`
	Trend      Trend              `json:"trend"`
	Importance map[string]float64 `json:"importance"`
	Summary    Summary            `json:"summary"`
	Version    uint64             `json:"version"`
}

// snapshot holds fitted parameters. It is never modified once published.
type snapshot struct {
	Version    uint64             `json:"version"`
	Config     FeatureConfig      `json:"config"`
	Names      []string           `json:"names"`
	Regressor  ridge              `json:"regressor"`
	Importance map[string]float64 `json:"importance"`
	Metrics    TrainingMetrics    `json:"metrics"`
}

// Model is an autoregressive forecaster. Predictions run against the snapshot
// that was current when they started; Train publishes a new one atomically.
type Model struct {
	cfg     FeatureConfig
	builder *FeatureBuilder
	current atomic.Pointer[snapshot]
	version atomic.Uint64
}

func NewModel(cfg FeatureConfig) (*Model, error) {
	builder, err := NewFeatureBuilder(cfg)
	if err != nil {
		return nil, err
	}
	return &Model{cfg: builder.cfg, builder: builder}, nil
}

// Config returns the feature configuration of the model.
func (m *Model) Config() FeatureConfig {
	return m.cfg.clone()
}

// Trained reports whether a snapshot has been published.
func (m *Model) Trained() bool {
	return m.current.Load() != nil
}

// Version returns the current snapshot version, 0 when untrained.
func (m *Model) Version() uint64 {
	if s := m.current.Load(); s != nil {
		return s.Version
	}
	return 0
}

// Metrics returns the metrics of the current snapshot.
func (m *Model) Metrics() (TrainingMetrics, bool) {
	s := m.current.Load()
	if s == nil {
		return TrainingMetrics{}, false
	}
	return s.Metrics, true
}

// Train fits the model on every point of the series that has full history
// and publishes the result as the new snapshot. When a concurrent Train
// started later has already published, the older fit is discarded.
func (m *Model) Train(s *Series) (TrainingMetrics, error) {
	var metrics TrainingMetrics
	var x [][]float64
	var y []float64

	for i := 0; i < s.Len(); i++ {
		p := s.points[i]
		vec, err := m.builder.Build(s, p.Time)
		switch {
		case errors.Is(err, ErrInsufficientHistory):
			metrics.SkippedHistory++
			continue
		case errors.Is(err, ErrDataGapTooLarge):
			metrics.SkippedGaps++
			continue
		case err != nil:
			return TrainingMetrics{}, err
		}
		x = append(x, vec.Values)
		y = append(y, p.Value)
	}

	metrics.Samples = len(x)
	if len(x) < m.cfg.MinTrainingSamples {
		return TrainingMetrics{}, fmt.Errorf("%w: %d labeled vectors, need %d",
			ErrInsufficientData, len(x), m.cfg.MinTrainingSamples)
	}

	// chronological split for evaluation
	split := len(x) * 8 / 10
	metrics.TrainSamples = split
	metrics.HoldoutSamples = len(x) - split

	evalFit, err := fitRidge(x[:split], y[:split], ridgeLambda)
	if err != nil {
		return TrainingMetrics{}, fmt.Errorf("failed to fit evaluation model: %w", err)
	}
	metrics.TrainR2 = rSquared(y[:split], predictAll(evalFit, x[:split]))
	metrics.HoldoutR2 = rSquared(y[split:], predictAll(evalFit, x[split:]))

	final, err := fitRidge(x, y, ridgeLambda)
	if err != nil {
		return TrainingMetrics{}, fmt.Errorf("failed to fit model: %w", err)
	}

	metrics.Version = m.version.Add(1)
	metrics.TrainedAt = time.Now().UTC()

	names := m.builder.Names()
	m.publish(&snapshot{
		Version:    metrics.Version,
		Config:     m.cfg.clone(),
		Names:      names,
		Regressor:  final,
		Importance: final.importance(names),
		Metrics:    metrics,
	})
	return metrics, nil
}

// publish installs next unless a snapshot with the same or a later version is
// already current.
func (m *Model) publish(next *snapshot) bool {
	for {
		cur := m.current.Load()
		if cur != nil && cur.Version >= next.Version {
			return false
		}
		if m.current.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Predict forecasts horizonHours hourly values following the last point of
// the series. Each predicted value is fed back as history for the next step.
func (m *Model) Predict(s *Series, horizonHours int) (Result, error) {
	snap := m.current.Load()
	if snap == nil {
		return Result{}, ErrModelNotTrained
	}
	return m.predict(snap, s, horizonHours, nil)
}

// predict runs the prediction loop against snap, calling afterStep after each
// step when it is not nil.
func (m *Model) predict(snap *snapshot, s *Series, horizonHours int, afterStep func(step int)) (Result, error) {
	if limit := snap.Config.MaxHorizon(); horizonHours <= 0 || horizonHours > limit {
		return Result{}, fmt.Errorf("%w: %d hours, must be between 1 and %d", ErrInvalidHorizon, horizonHours, limit)
	}
	last, ok := s.Last()
	if !ok {
		return Result{}, fmt.Errorf("%w: empty series", ErrInsufficientHistory)
	}

	work := s.working(horizonHours)
	points := make([]Point, 0, horizonHours)

	for step := 1; step <= horizonHours; step++ {
		at := last.Time.Add(time.Duration(step) * time.Hour)
		vec, err := m.builder.Build(work, at)
		if err != nil {
			return Result{}, &StepError{Step: step, At: at, Err: err}
		}

		value := math.Max(0, snap.Regressor.predict(vec.Values))
		p := Point{Time: at, Value: value}
		work.points = append(work.points, p)
		points = append(points, p)

		if afterStep != nil {
			afterStep(step)
		}
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	importance := make(map[string]float64, len(snap.Importance))
	for k, v := range snap.Importance {
		importance[k] = v
	}

	return Result{
		Location:   s.Location(),
		Pollutant:  s.Pollutant(),
		Points:     points,
		Trend:      classifyTrend(values, snap.Config.TrendThreshold),
		Importance: importance,
		Summary:    summarize(values),
		Version:    snap.Version,
	}, nil
}

// Export serializes the current snapshot.
func (m *Model) Export() ([]byte, error) {
	snap := m.current.Load()
	if snap == nil {
		return nil, ErrModelNotTrained
	}
	return json.Marshal(snap)
}

// Restore rebuilds a trained model from Export output.
func Restore(data []byte) (*Model, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode model snapshot: %w", err)
	}

	m, err := NewModel(snap.Config)
	if err != nil {
		return nil, err
	}
	names := m.builder.Names()
	if len(snap.Names) != len(names) || !snap.Regressor.valid(len(names)) {
		return nil, fmt.Errorf("model snapshot has %d features, config expects %d", len(snap.Names), len(names))
	}
	for i, name := range names {
		if snap.Names[i] != name {
			return nil, fmt.Errorf("model snapshot feature %d is %q, want %q", i, snap.Names[i], name)
		}
	}

	m.version.Store(snap.Version)
	m.current.Store(&snap)
	return m, nil
}

func predictAll(r ridge, x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = r.predict(row)
	}
	return out
}

// classifyTrend compares the mean of the first and last thirds of values.
func classifyTrend(values []float64, threshold float64) Trend {
	n := len(values)
	if n == 0 {
		return TrendStable
	}
	third := max(1, n/3)
	first := mean(values[:third])
	last := mean(values[n-third:])

	if first == 0 {
		switch {
		case last > 0:
			return TrendIncreasing
		case last < 0:
			return TrendDecreasing
		}
		return TrendStable
	}

	delta := (last - first) / math.Abs(first)
	switch {
	case delta > threshold:
		return TrendIncreasing
	case delta < -threshold:
		return TrendDecreasing
	}
	return TrendStable
}

func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{Min: values[0], Max: values[0]}
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = mean(values)
	return s
}

func mean(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
