package service

import (
	"fmt"
	"log/slog"

	"airwatch/internal/aqi"
	"airwatch/internal/cache"
	"airwatch/internal/config"
	"airwatch/internal/location"
)

// FromConfig builds a service from the loaded configuration. A nil locations
// selects the configured ones; store and snapshots may be nil.
func FromConfig(cfg *config.Config, locations *location.Registry, source Source, store Store, snapshots cache.Provider, logger *slog.Logger) (*Service, error) {
	table, err := cfg.BreakpointTable()
	if err != nil {
		return nil, fmt.Errorf("failed to load breakpoints: %w", err)
	}
	advisories, err := cfg.Advisories()
	if err != nil {
		return nil, fmt.Errorf("failed to load advisories: %w", err)
	}
	if locations == nil {
		if locations, err = cfg.LocationRegistry(); err != nil {
			return nil, fmt.Errorf("failed to load locations: %w", err)
		}
	}
	pollutants, err := cfg.Pollutants()
	if err != nil {
		return nil, err
	}

	return New(Options{
		Calculator:        aqi.NewCalculator(table),
		Advisories:        advisories,
		Locations:         locations,
		Source:            source,
		Store:             store,
		Cache:             snapshots,
		Pollutants:        pollutants,
		Features:          cfg.Forecast.FeatureConfig,
		HorizonHours:      cfg.Forecast.HorizonHours,
		HistoryDays:       cfg.Forecast.HistoryDays,
		WeatherThresholds: cfg.Weather,
		Logger:            logger,
	})
}
