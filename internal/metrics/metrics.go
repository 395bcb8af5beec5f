package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	// DBQueriesTotal tracks the total number of database queries
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries executed",
		},
		[]string{"query_type", "table", "status"},
	)

	// DBQueryDuration tracks the duration of database queries
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of established connections both in use and idle",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle connections",
		},
	)
)

// Air quality metrics
var (
	AQIComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airwatch_aqi_computations_total",
			Help: "AQI values computed, by pollutant and category",
		},
		[]string{"pollutant", "category"},
	)

	ForecastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "airwatch_forecast_duration_seconds",
			Help:    "Time spent producing a forecast",
			Buckets: prometheus.DefBuckets,
		},
	)

	ModelTrainings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airwatch_model_trainings_total",
			Help: "Forecast model training runs by outcome",
		},
		[]string{"status"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airwatch_cache_requests_total",
			Help: "Cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airwatch_api_requests_total",
			Help: "HTTP API requests by endpoint and status code",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airwatch_upstream_requests_total",
			Help: "Requests to the air quality and weather providers",
		},
		[]string{"source", "status"},
	)

	StreamMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airwatch_stream_messages_total",
			Help: "Readings moved through the ingest stream",
		},
		[]string{"stage", "status"},
	)

	AlertsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airwatch_alerts_published_total",
			Help: "AQI alerts published",
		},
	)

	// AppInfo provides static information about the application
	AppInfo = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airwatch_app_info",
			Help: "Application information (always 1)",
		},
	)

	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airwatch_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

func init() {
	AppInfo.Set(1)
	AppStartTime.SetToCurrentTime()
}

// RecordDBQuery records a database query execution
func RecordDBQuery(queryType, table string, duration time.Duration, err error) {
	DBQueriesTotal.WithLabelValues(queryType, table, status(err)).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(open, inUse, idle int) {
	DBConnectionsOpen.Set(float64(open))
	DBConnectionsInUse.Set(float64(inUse))
	DBConnectionsIdle.Set(float64(idle))
}

func RecordAQI(pollutant, category string) {
	AQIComputations.WithLabelValues(pollutant, category).Inc()
}

func ObserveForecast(duration time.Duration) {
	ForecastDuration.Observe(duration.Seconds())
}

func RecordTraining(err error) {
	ModelTrainings.WithLabelValues(status(err)).Inc()
}

func RecordCacheRequest(result string) {
	CacheRequests.WithLabelValues(result).Inc()
}

func RecordAPIRequest(endpoint string, code int) {
	APIRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

func RecordUpstream(source string, err error) {
	UpstreamRequests.WithLabelValues(source, status(err)).Inc()
}

func RecordStreamMessage(stage string, err error) {
	StreamMessages.WithLabelValues(stage, status(err)).Inc()
}

func RecordAlert() {
	AlertsPublished.Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
