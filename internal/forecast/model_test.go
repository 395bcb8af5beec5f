package forecast

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

func smallConfig() FeatureConfig {
	return FeatureConfig{
		Lags:               []int{1, 2, 3, 6},
		Windows:            []int{3, 6},
		GapTolerance:       2,
		MinTrainingSamples: 24,
		TrendThreshold:     0.05,
	}
}

func trainedModel(t *testing.T, s *Series) *Model {
	t.Helper()
	m, err := NewModel(smallConfig())
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	if _, err := m.Train(s); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return m
}

func samePoints(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Time.Equal(b[i].Time) || a[i].Value != b[i].Value {
			return false
		}
	}
	return true
}

func TestPredict_NotTrained(t *testing.T) {
	m, err := NewModel(DefaultFeatureConfig())
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	if m.Trained() {
		t.Error("Trained() = true before Train")
	}

	s := hourlySeries(t, base, linear(48, 10, 1))
	if _, err := m.Predict(s, 24); !errors.Is(err, ErrModelNotTrained) {
		t.Errorf("Predict() error = %v, want %v", err, ErrModelNotTrained)
	}
	if _, err := m.Export(); !errors.Is(err, ErrModelNotTrained) {
		t.Errorf("Export() error = %v, want %v", err, ErrModelNotTrained)
	}
}

func TestTrain_InsufficientData(t *testing.T) {
	m, _ := NewModel(DefaultFeatureConfig())

	// 48 points leave 24 labeled vectors with a 24 hour span
	s := hourlySeries(t, base, linear(48, 10, 1))
	_, err := m.Train(s)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Train() error = %v, want %v", err, ErrInsufficientData)
	}
	if m.Trained() {
		t.Error("Trained() = true after failed Train")
	}
}

func TestTrain_Metrics(t *testing.T) {
	m, _ := NewModel(smallConfig())

	metrics, err := m.Train(hourlySeries(t, base, linear(48, 10, 2)))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if metrics.Samples != 42 {
		t.Errorf("Train() samples = %d, want 42", metrics.Samples)
	}
	if metrics.TrainSamples != 33 || metrics.HoldoutSamples != 9 {
		t.Errorf("Train() split = %d/%d, want 33/9", metrics.TrainSamples, metrics.HoldoutSamples)
	}
	if metrics.SkippedHistory != 6 {
		t.Errorf("Train() skipped history = %d, want 6", metrics.SkippedHistory)
	}
	if metrics.TrainR2 < 0.99 {
		t.Errorf("Train() train R2 = %v, want >= 0.99", metrics.TrainR2)
	}
	if metrics.Version != 1 || m.Version() != 1 {
		t.Errorf("Train() version = %d, model version = %d, want 1", metrics.Version, m.Version())
	}
}

func TestTrain_SkipsGaps(t *testing.T) {
	m, _ := NewModel(smallConfig())

	s := hourlySeries(t, base, linear(72, 10, 1), 30, 31, 32, 33, 34)
	metrics, err := m.Train(s)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if metrics.SkippedGaps == 0 {
		t.Error("Train() skipped no vectors across a 5 hour gap")
	}
	if metrics.Samples+metrics.SkippedGaps+metrics.SkippedHistory != s.Len() {
		t.Errorf("Train() accounted for %d of %d points",
			metrics.Samples+metrics.SkippedGaps+metrics.SkippedHistory, s.Len())
	}
}

func TestPredict_IncreasingTrend(t *testing.T) {
	s := hourlySeries(t, base, linear(48, 10, 2))
	m := trainedModel(t, s)

	res, err := m.Predict(s, 24)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if res.Trend != TrendIncreasing {
		t.Errorf("Predict() trend = %s, want %s", res.Trend, TrendIncreasing)
	}
	if len(res.Points) != 24 {
		t.Fatalf("Predict() returned %d points, want 24", len(res.Points))
	}

	last, _ := s.Last()
	for i, p := range res.Points {
		want := last.Time.Add(time.Duration(i+1) * time.Hour)
		if !p.Time.Equal(want) {
			t.Errorf("Predict() point %d time = %s, want %s", i, p.Time, want)
		}
	}

	// the series continues at +2 per hour from 104
	if math.Abs(res.Points[0].Value-106) > 0.5 {
		t.Errorf("Predict() first value = %v, want about 106", res.Points[0].Value)
	}

	total := 0.0
	for _, w := range res.Importance {
		total += w
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("Importance sums to %v, want 1", total)
	}
	if len(res.Importance) != len(smallConfig().Names()) {
		t.Errorf("Importance has %d features, want %d", len(res.Importance), len(smallConfig().Names()))
	}

	if res.Summary.Min > res.Summary.Mean || res.Summary.Mean > res.Summary.Max {
		t.Errorf("Summary = %+v, want min <= mean <= max", res.Summary)
	}
	if res.Version != 1 || res.Location != "test" {
		t.Errorf("Predict() version = %d location = %q", res.Version, res.Location)
	}
}

func TestPredict_ClampsAtZero(t *testing.T) {
	s := hourlySeries(t, base, linear(48, 100, -2))
	m := trainedModel(t, s)

	res, err := m.Predict(s, 24)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i, p := range res.Points {
		if p.Value < 0 {
			t.Errorf("Predict() point %d = %v, want >= 0", i, p.Value)
		}
	}
	if math.Abs(res.Points[0].Value-4) > 0.5 {
		t.Errorf("Predict() first value = %v, want about 4", res.Points[0].Value)
	}
}

func TestPredict_InvalidHorizon(t *testing.T) {
	s := hourlySeries(t, base, linear(48, 10, 2))
	m := trainedModel(t, s)

	tests := []struct {
		name    string
		horizon int
		wantErr bool
	}{
		{"zero", 0, true},
		{"negative", -3, true},
		{"at limit", DefaultMaxHorizonHours, false},
		{"above limit", DefaultMaxHorizonHours + 1, true},
		{"huge", 100000000000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.Predict(s, tt.horizon)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHorizon) {
					t.Errorf("Predict(%d) error = %v, want %v", tt.horizon, err, ErrInvalidHorizon)
				}
				return
			}
			if err != nil || len(res.Points) != tt.horizon {
				t.Errorf("Predict(%d) = %d points, %v", tt.horizon, len(res.Points), err)
			}
		})
	}
}

func TestPredict_ConfiguredHorizonLimit(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxHorizonHours = 12
	m, err := NewModel(cfg)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	s := hourlySeries(t, base, linear(48, 10, 2))
	if _, err := m.Train(s); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if _, err := m.Predict(s, 12); err != nil {
		t.Errorf("Predict(12) error = %v", err)
	}
	if _, err := m.Predict(s, 13); !errors.Is(err, ErrInvalidHorizon) {
		t.Errorf("Predict(13) error = %v, want %v", err, ErrInvalidHorizon)
	}
}

func TestPredict_DefaultConfigIncreasingTrend(t *testing.T) {
	m, err := NewModel(DefaultFeatureConfig())
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	s := hourlySeries(t, base, linear(48, 10, 2))
	if _, err := m.Train(s); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	res, err := m.Predict(s, 24)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if res.Trend != TrendIncreasing {
		t.Errorf("Predict() trend = %s, want %s", res.Trend, TrendIncreasing)
	}
}

func TestTrain_StaleFitDoesNotReplaceNewer(t *testing.T) {
	up := hourlySeries(t, base, linear(48, 10, 2))
	m := trainedModel(t, up)
	older := m.current.Load()

	if _, err := m.Train(up); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if m.Version() != 2 {
		t.Fatalf("Version() = %d, want 2", m.Version())
	}

	if m.publish(older) {
		t.Error("publish() accepted an older snapshot")
	}
	if m.Version() != 2 {
		t.Errorf("Version() = %d after a stale publish, want 2", m.Version())
	}
}

func TestTrain_ConcurrentVersionsOnlyMoveForward(t *testing.T) {
	up := hourlySeries(t, base, linear(48, 10, 2))
	m := trainedModel(t, up)

	const trainers = 8
	var wg sync.WaitGroup
	for i := 0; i < trainers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Train(up); err != nil {
				t.Errorf("Train() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if m.Version() != trainers+1 {
		t.Errorf("Version() = %d, want %d", m.Version(), trainers+1)
	}
}

func TestPredict_StepError(t *testing.T) {
	m := trainedModel(t, hourlySeries(t, base, linear(48, 10, 2)))

	// 8 missing hours right behind the last two samples
	recent := hourlySeries(t, base, linear(30, 10, 2), 20, 21, 22, 23, 24, 25, 26, 27)
	_, err := m.Predict(recent, 24)

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Predict() error = %v, want *StepError", err)
	}
	if stepErr.Step != 1 {
		t.Errorf("StepError.Step = %d, want 1", stepErr.Step)
	}
	if !stepErr.At.Equal(base.Add(30 * time.Hour)) {
		t.Errorf("StepError.At = %s, want %s", stepErr.At, base.Add(30*time.Hour))
	}
	if !errors.Is(err, ErrDataGapTooLarge) {
		t.Errorf("Predict() error = %v, want %v", err, ErrDataGapTooLarge)
	}
}

func TestPredict_RetrainMidFlight(t *testing.T) {
	up := hourlySeries(t, base, linear(48, 10, 2))
	down := hourlySeries(t, base, linear(48, 200, -2))
	m := trainedModel(t, up)

	want, err := m.Predict(up, 24)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	retrained := false
	got, err := m.predict(m.current.Load(), up, 24, func(step int) {
		if step == 5 && !retrained {
			retrained = true
			if _, err := m.Train(down); err != nil {
				t.Errorf("Train() error = %v", err)
			}
		}
	})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	if !retrained {
		t.Fatal("retrain hook did not run")
	}
	if got.Version != want.Version {
		t.Errorf("Predict() version = %d, want %d", got.Version, want.Version)
	}
	if !samePoints(got.Points, want.Points) {
		t.Errorf("Predict() points changed by a concurrent retrain")
	}
	if got.Trend != want.Trend {
		t.Errorf("Predict() trend = %s, want %s", got.Trend, want.Trend)
	}

	if m.Version() != want.Version+1 {
		t.Errorf("Version() = %d, want %d", m.Version(), want.Version+1)
	}
	after, err := m.Predict(up, 24)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if after.Version != want.Version+1 {
		t.Errorf("Predict() after retrain version = %d, want %d", after.Version, want.Version+1)
	}
}

func TestPredict_ConcurrentWithTrain(t *testing.T) {
	s := hourlySeries(t, base, linear(48, 10, 2))
	m := trainedModel(t, s)
	want, _ := m.Predict(s, 12)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			if _, err := m.Train(s); err != nil {
				t.Errorf("Train() error = %v", err)
				return
			}
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				got, err := m.Predict(s, 12)
				if err != nil {
					t.Errorf("Predict() error = %v", err)
					return
				}
				if !samePoints(got.Points, want.Points) {
					t.Errorf("Predict() version %d returned different points", got.Version)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestExportRestore(t *testing.T) {
	s := hourlySeries(t, base, linear(48, 10, 2))
	m := trainedModel(t, s)
	want, _ := m.Predict(s, 24)

	data, err := m.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	restored, err := Restore(data)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	got, err := restored.Predict(s, 24)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if !samePoints(got.Points, want.Points) {
		t.Error("restored model predicts different points")
	}
	if got.Version != want.Version {
		t.Errorf("restored version = %d, want %d", got.Version, want.Version)
	}

	// retraining a restored model moves past the restored version
	metrics, err := restored.Train(s)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if metrics.Version != want.Version+1 {
		t.Errorf("Train() version = %d, want %d", metrics.Version, want.Version+1)
	}

	if _, err := Restore([]byte("{not json")); err == nil {
		t.Error("Restore() expected error for invalid JSON, got nil")
	}
	if _, err := Restore([]byte(`{"config":{"lags":[1],"min_training_samples":5},"names":["hour"]}`)); err == nil {
		t.Error("Restore() expected error for mismatched features, got nil")
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Trend
	}{
		{"empty", nil, TrendStable},
		{"flat", []float64{5, 5, 5, 5, 5, 5}, TrendStable},
		{"rising", []float64{10, 10, 11, 12, 13, 13}, TrendIncreasing},
		{"falling", []float64{13, 13, 12, 11, 10, 10}, TrendDecreasing},
		{"within threshold", []float64{100, 100, 101, 102, 103, 103}, TrendStable},
		{"from zero", []float64{0, 0, 1, 1, 2, 2}, TrendIncreasing},
		{"all zero", []float64{0, 0, 0}, TrendStable},
		{"single", []float64{4}, TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTrend(tt.values, 0.05); got != tt.want {
				t.Errorf("classifyTrend(%v) = %s, want %s", tt.values, got, tt.want)
			}
		})
	}
}

func TestImportance_Uniform(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	r := ridge{Coef: make([]float64, len(names))}

	for name, w := range r.importance(names) {
		if w != 0.25 {
			t.Errorf("importance[%s] = %v, want 0.25", name, w)
		}
	}
}
