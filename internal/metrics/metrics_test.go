package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordDBQuery(t *testing.T) {
	before := counterValue(t, DBQueriesTotal.WithLabelValues("INSERT", "measurements", "error"))

	RecordDBQuery("INSERT", "measurements", 5*time.Millisecond, errors.New("boom"))

	after := counterValue(t, DBQueriesTotal.WithLabelValues("INSERT", "measurements", "error"))
	if after != before+1 {
		t.Errorf("db_queries_total = %v, want %v", after, before+1)
	}
}

func TestRecordHelpers(t *testing.T) {
	tests := []struct {
		name   string
		record func()
		read   func(t *testing.T) float64
	}{
		{
			name:   "aqi",
			record: func() { RecordAQI("pm25", "Good") },
			read:   func(t *testing.T) float64 { return counterValue(t, AQIComputations.WithLabelValues("pm25", "Good")) },
		},
		{
			name:   "training",
			record: func() { RecordTraining(nil) },
			read:   func(t *testing.T) float64 { return counterValue(t, ModelTrainings.WithLabelValues("success")) },
		},
		{
			name:   "cache",
			record: func() { RecordCacheRequest("hit") },
			read:   func(t *testing.T) float64 { return counterValue(t, CacheRequests.WithLabelValues("hit")) },
		},
		{
			name:   "api",
			record: func() { RecordAPIRequest("/aqi", 400) },
			read:   func(t *testing.T) float64 { return counterValue(t, APIRequests.WithLabelValues("/aqi", "400")) },
		},
		{
			name:   "alerts",
			record: RecordAlert,
			read:   func(t *testing.T) float64 { return counterValue(t, AlertsPublished) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.read(t)
			tt.record()
			if got := tt.read(t); got != before+1 {
				t.Errorf("counter = %v, want %v", got, before+1)
			}
		})
	}
}
