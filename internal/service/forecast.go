package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"airwatch/internal/aqi"
	"airwatch/internal/cache"
	"airwatch/internal/forecast"
	"airwatch/internal/location"
	"airwatch/internal/metrics"
	"airwatch/internal/models"
)

// ForecastReport is a forecast together with the AQI of each predicted hour.
type ForecastReport struct {
	Forecast forecast.Result          `json:"forecast"`
	AQI      []int                    `json:"aqi"`
	Peak     aqi.Result               `json:"peak"`
	Metrics  forecast.TrainingMetrics `json:"metrics"`
}

func snapshotKey(k SeriesKey) string {
	return fmt.Sprintf("model:%s:%s", location.Location{Name: k.Location}.ID(), k.Pollutant)
}

// SeriesKeys lists every monitored location and pollutant pair.
func (s *Service) SeriesKeys() []SeriesKey {
	var keys []SeriesKey
	for _, loc := range s.locations.All() {
		for _, p := range s.pollutants {
			keys = append(keys, SeriesKey{Location: loc.Name, Pollutant: p})
		}
	}
	return keys
}

func (s *Service) resolve(nameOrID, pollutant string) (location.Location, aqi.Pollutant, error) {
	loc, err := s.locations.Lookup(nameOrID)
	if err != nil {
		return location.Location{}, "", err
	}
	p, err := aqi.ParsePollutant(pollutant)
	if err != nil {
		return location.Location{}, "", err
	}
	return loc, p, nil
}

// History loads the hourly series of a pollutant at a location from the
// store, falling back to the live source when nothing is stored.
func (s *Service) History(ctx context.Context, loc location.Location, p aqi.Pollutant) (*forecast.Series, error) {
	since := s.now().Add(-time.Duration(s.historyDays) * 24 * time.Hour)

	var readings []aqi.Reading
	if s.store != nil {
		rs, err := s.store.GetReadings(ctx, loc.Name, p, since)
		if err != nil {
			return nil, fmt.Errorf("failed to load history for %s/%s: %w", loc.Name, p, err)
		}
		readings = rs
	}

	if len(readings) == 0 {
		data, err := s.source.GetAirQuality(ctx, loc.Latitude, loc.Longitude, s.historyDays)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch history for %s: %w", loc.Name, err)
		}
		readings = data.Readings[p]
	}

	if len(readings) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", loc.Name, p, ErrNoData)
	}
	return forecast.NewSeries(loc.Name, p, readings)
}

// Train fits the model of one series on its stored history, records the run
// and persists the snapshot. Forecasts in flight keep the previous snapshot.
func (s *Service) Train(ctx context.Context, nameOrID, pollutant string) (forecast.TrainingMetrics, error) {
	loc, p, err := s.resolve(nameOrID, pollutant)
	if err != nil {
		return forecast.TrainingMetrics{}, err
	}
	series, err := s.History(ctx, loc, p)
	if err != nil {
		return forecast.TrainingMetrics{}, err
	}
	return s.train(ctx, SeriesKey{Location: loc.Name, Pollutant: p}, series)
}

func (s *Service) train(ctx context.Context, key SeriesKey, series *forecast.Series) (forecast.TrainingMetrics, error) {
	model, err := s.models.GetOrCreate(key)
	if err != nil {
		return forecast.TrainingMetrics{}, err
	}

	tm, err := model.Train(series)
	metrics.RecordTraining(err)
	if err != nil {
		return forecast.TrainingMetrics{}, fmt.Errorf("training %s/%s: %w", key.Location, key.Pollutant, err)
	}

	s.logger.Info("model trained",
		"location", key.Location,
		"pollutant", key.Pollutant,
		"samples", tm.Samples,
		"holdout_r2", tm.HoldoutR2,
		"version", tm.Version,
	)

	if data, err := model.Export(); err == nil {
		if err := s.cache.Set(ctx, snapshotKey(key), data, 0); err != nil {
			s.logger.Warn("failed to persist model snapshot", "location", key.Location, "pollutant", key.Pollutant, "error", err)
		}
	}

	if s.store != nil {
		if err := s.store.StoreTrainingRun(ctx, &models.TrainingRun{
			Location:  key.Location,
			Pollutant: string(key.Pollutant),
			TrainedAt: tm.TrainedAt,
			Samples:   tm.Samples,
			TrainR2:   tm.TrainR2,
			HoldoutR2: tm.HoldoutR2,
			Version:   tm.Version,
		}); err != nil {
			s.logger.Warn("failed to record training run", "location", key.Location, "error", err)
		}
	}
	return tm, nil
}

// RestoreSnapshots loads persisted snapshots for every series and returns how
// many were restored. Missing or stale snapshots are skipped.
func (s *Service) RestoreSnapshots(ctx context.Context) int {
	restored := 0
	for _, key := range s.SeriesKeys() {
		if s.restore(ctx, key) {
			restored++
		}
	}
	return restored
}

func (s *Service) restore(ctx context.Context, key SeriesKey) bool {
	data, err := s.cache.Get(ctx, snapshotKey(key))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("failed to read model snapshot", "location", key.Location, "pollutant", key.Pollutant, "error", err)
		}
		return false
	}
	model, err := forecast.Restore(data)
	if err != nil {
		s.logger.Warn("discarding model snapshot", "location", key.Location, "pollutant", key.Pollutant, "error", err)
		return false
	}
	s.models.Put(key, model)
	return true
}

// Forecast predicts horizonHours of a pollutant at a location; 0 selects the
// configured horizon. An untrained series is restored from its snapshot or
// trained on demand.
func (s *Service) Forecast(ctx context.Context, nameOrID, pollutant string, horizonHours int) (*ForecastReport, error) {
	loc, p, err := s.resolve(nameOrID, pollutant)
	if err != nil {
		return nil, err
	}
	if horizonHours == 0 {
		horizonHours = s.horizon
	}
	if horizonHours < 0 || horizonHours > s.maxHorizon {
		return nil, fmt.Errorf("%w: %d hours, must be between 1 and %d", forecast.ErrInvalidHorizon, horizonHours, s.maxHorizon)
	}

	series, err := s.History(ctx, loc, p)
	if err != nil {
		return nil, err
	}

	key := SeriesKey{Location: loc.Name, Pollutant: p}
	model, ok := s.models.Get(key)
	if !ok || !model.Trained() {
		if s.restore(ctx, key) {
			model, _ = s.models.Get(key)
		} else {
			if _, err := s.train(ctx, key, series); err != nil {
				return nil, err
			}
			model, _ = s.models.Get(key)
		}
	}

	start := time.Now()
	res, err := model.Predict(series, horizonHours)
	metrics.ObserveForecast(time.Since(start))
	if err != nil {
		return nil, err
	}

	report := &ForecastReport{Forecast: res, AQI: make([]int, len(res.Points))}
	for i, pt := range res.Points {
		r, err := s.calc.Compute(p, pt.Value)
		if err != nil {
			return nil, err
		}
		report.AQI[i] = r.AQI
	}
	if report.Peak, err = s.calc.Compute(p, res.Summary.Max); err != nil {
		return nil, err
	}
	report.Metrics, _ = model.Metrics()
	return report, nil
}
