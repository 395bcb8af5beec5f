// Package service combines the AQI calculator, advisories, forecasting and
// the Open-Meteo client into the operations the HTTP server and the
// binaries expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"airwatch/internal/api"
	"airwatch/internal/aqi"
	"airwatch/internal/cache"
	"airwatch/internal/forecast"
	"airwatch/internal/insights"
	"airwatch/internal/location"
	"airwatch/internal/metrics"
	"airwatch/internal/models"
	"airwatch/internal/weather"
)

// ErrNoData is returned when a location has no usable readings.
var ErrNoData = errors.New("no air quality data")

// Source fetches live air quality and weather.
type Source interface {
	GetAirQuality(ctx context.Context, lat, long float64, pastDays int) (*api.AirQuality, error)
	GetCurrentWeather(ctx context.Context, lat, long float64) (*models.Weather, error)
}

// Store is the persistence the service reads history from and records to.
type Store interface {
	GetReadings(ctx context.Context, location string, pollutant aqi.Pollutant, since time.Time) ([]aqi.Reading, error)
	StoreTrainingRun(ctx context.Context, r *models.TrainingRun) error
	StoreAQISnapshot(ctx context.Context, s *models.AQISnapshot) error
	AddHistory(ctx context.Context, h *models.HistoryEntry) error
}

type Options struct {
	Calculator *aqi.Calculator
	Advisories *aqi.AdvisoryTable
	Locations  *location.Registry
	Source     Source
	// Store is optional; without it history comes from Source.
	Store Store
	// Cache holds exported model snapshots; nil disables persistence.
	Cache cache.Provider

	Pollutants        []aqi.Pollutant
	Features          forecast.FeatureConfig
	HorizonHours      int
	HistoryDays       int
	WeatherThresholds weather.Thresholds

	Logger *slog.Logger
	Now    func() time.Time
}

type Service struct {
	calc       *aqi.Calculator
	advisories *aqi.AdvisoryTable
	locations  *location.Registry
	source     Source
	store      Store
	cache      cache.Provider
	models     *ModelRegistry
	spikes     *insights.SpikeDetector

	pollutants  []aqi.Pollutant
	horizon     int
	maxHorizon  int
	historyDays int
	thresholds  weather.Thresholds

	logger *slog.Logger
	now    func() time.Time
}

func New(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("service: source is required")
	}
	if opts.Calculator == nil {
		opts.Calculator = aqi.NewCalculator(nil)
	}
	if opts.Advisories == nil {
		opts.Advisories = aqi.DefaultAdvisories()
	}
	if opts.Locations == nil {
		reg, err := location.NewRegistry(nil)
		if err != nil {
			return nil, err
		}
		opts.Locations = reg
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopProvider{}
	}
	if len(opts.Pollutants) == 0 {
		opts.Pollutants = aqi.Pollutants
	}
	if len(opts.Features.Lags) == 0 {
		opts.Features = forecast.DefaultFeatureConfig()
	}
	if opts.HorizonHours <= 0 {
		opts.HorizonHours = 24
	}
	if opts.HorizonHours > opts.Features.MaxHorizon() {
		return nil, fmt.Errorf("service: horizon %d exceeds the limit of %d hours", opts.HorizonHours, opts.Features.MaxHorizon())
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 7
	}
	if opts.WeatherThresholds == (weather.Thresholds{}) {
		opts.WeatherThresholds = weather.DefaultThresholds()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	registry, err := NewModelRegistry(opts.Features)
	if err != nil {
		return nil, err
	}

	return &Service{
		calc:        opts.Calculator,
		advisories:  opts.Advisories,
		locations:   opts.Locations,
		source:      opts.Source,
		store:       opts.Store,
		cache:       opts.Cache,
		models:      registry,
		spikes:      insights.NewSpikeDetector(insights.DefaultZScoreThreshold),
		pollutants:  opts.Pollutants,
		horizon:     opts.HorizonHours,
		maxHorizon:  opts.Features.MaxHorizon(),
		historyDays: opts.HistoryDays,
		thresholds:  opts.WeatherThresholds,
		logger:      opts.Logger,
		now:         opts.Now,
	}, nil
}

// Locations returns the monitored locations.
func (s *Service) Locations() []location.Location {
	return s.locations.All()
}

// Location resolves a location by name or ID.
func (s *Service) Location(nameOrID string) (location.Location, error) {
	return s.locations.Lookup(nameOrID)
}

// Search finds monitored locations by name or country.
func (s *Service) Search(query string, limit int) ([]location.Location, error) {
	return s.locations.Search(query, limit)
}

// Nearest returns the monitored location closest to a point.
func (s *Service) Nearest(lat, lon float64) (location.Location, float64) {
	return s.locations.Nearest(lat, lon)
}

// AQIResult is a computed AQI with its health advisory.
type AQIResult struct {
	aqi.Result
	Advisory aqi.HealthAdvisory `json:"advisory"`
}

// ComputeAQI converts one concentration to an AQI and resolves its advisory.
func (s *Service) ComputeAQI(pollutant string, concentration float64) (AQIResult, error) {
	p, err := aqi.ParsePollutant(pollutant)
	if err != nil {
		return AQIResult{}, err
	}
	res, err := s.calc.Compute(p, concentration)
	if err != nil {
		return AQIResult{}, err
	}
	metrics.RecordAQI(string(p), res.Category.String())

	adv, err := s.advisories.Advise(res.Category)
	if err != nil {
		return AQIResult{}, err
	}
	return AQIResult{Result: res, Advisory: adv}, nil
}

// Report is the current air quality picture of a location.
type Report struct {
	Location      location.Location  `json:"location"`
	GeneratedAt   time.Time          `json:"generated_at"`
	Pollutants    []aqi.Result       `json:"pollutants"`
	Dominant      aqi.Result         `json:"dominant"`
	Advisory      aqi.HealthAdvisory `json:"advisory"`
	Weather       *models.Weather    `json:"weather,omitempty"`
	WeatherImpact weather.Analysis   `json:"weather_impact"`
	Statistics    *insights.Stats    `json:"statistics,omitempty"`
	Trend         insights.Trend     `json:"trend"`
	Spikes        []insights.Spike   `json:"spikes"`
	Insights      []string           `json:"insights"`
}

// Report fetches live readings for a location and assembles its report.
// Weather is best effort; a weather failure leaves the impact unknown.
func (s *Service) Report(ctx context.Context, nameOrID string) (*Report, error) {
	loc, err := s.locations.Lookup(nameOrID)
	if err != nil {
		return nil, err
	}
	report, err := s.buildReport(ctx, loc)
	if err != nil {
		return nil, err
	}
	s.record(ctx, loc, report)
	return report, nil
}

func (s *Service) buildReport(ctx context.Context, loc location.Location) (*Report, error) {
	data, err := s.source.GetAirQuality(ctx, loc.Latitude, loc.Longitude, s.historyDays)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch air quality for %s: %w", loc.Name, err)
	}

	var latest []aqi.Reading
	for _, p := range s.pollutants {
		if rs := data.Readings[p]; len(rs) > 0 {
			latest = append(latest, rs[len(rs)-1])
		}
	}
	if len(latest) == 0 {
		return nil, fmt.Errorf("%s: %w", loc.Name, ErrNoData)
	}

	report := &Report{Location: loc, GeneratedAt: s.now().UTC(), Spikes: []insights.Spike{}}
	for _, r := range latest {
		res, err := s.calc.ComputeReading(r)
		if err != nil {
			s.logger.Warn("skipping reading", "location", loc.Name, "pollutant", r.Pollutant, "error", err)
			continue
		}
		metrics.RecordAQI(string(r.Pollutant), res.Category.String())
		report.Pollutants = append(report.Pollutants, res)
		if len(report.Pollutants) == 1 || res.AQI > report.Dominant.AQI {
			report.Dominant = res
		}
	}
	if len(report.Pollutants) == 0 {
		return nil, fmt.Errorf("%s: %w", loc.Name, ErrNoData)
	}

	if report.Advisory, err = s.advisories.Advise(report.Dominant.Category); err != nil {
		return nil, err
	}

	w, err := s.source.GetCurrentWeather(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		s.logger.Warn("weather unavailable", "location", loc.Name, "error", err)
		w = nil
	}
	report.Weather = w
	report.WeatherImpact = weather.Analyze(w, s.thresholds)

	history := data.Readings[report.Dominant.Pollutant]
	values := make([]float64, len(history))
	for i, r := range history {
		values[i] = r.Concentration
	}
	if st, ok := insights.ComputeStats(values); ok {
		report.Statistics = &st
	}
	report.Trend = insights.DetectTrend(values, insights.DefaultTrendWindow)
	if n := len(history); n > insights.DefaultTrendWindow {
		cut := n - insights.DefaultTrendWindow
		if spikes := s.spikes.Detect(history[:cut], history[cut:]); spikes != nil {
			report.Spikes = spikes
		}
	}
	report.Insights = insights.Generate(report.Dominant, values)
	return report, nil
}

// record stores the view and the dominant AQI. Failures are logged only.
func (s *Service) record(ctx context.Context, loc location.Location, r *Report) {
	if s.store == nil {
		return
	}
	if err := s.store.AddHistory(ctx, &models.HistoryEntry{
		LocationID: loc.ID(),
		Name:       loc.Name,
		Country:    loc.Country,
		ViewedAt:   r.GeneratedAt,
	}); err != nil {
		s.logger.Warn("failed to record history", "location", loc.Name, "error", err)
	}
	if err := s.store.StoreAQISnapshot(ctx, &models.AQISnapshot{
		Location:  loc.Name,
		Timestamp: r.GeneratedAt,
		Pollutant: string(r.Dominant.Pollutant),
		AQI:       r.Dominant.AQI,
		Category:  r.Dominant.Category.String(),
	}); err != nil {
		s.logger.Warn("failed to record aqi snapshot", "location", loc.Name, "error", err)
	}
}
