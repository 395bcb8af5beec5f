package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"airwatch/internal/aqi"
	"airwatch/internal/location"
)

// ErrNoLocations is returned when a comparison names no location.
var ErrNoLocations = errors.New("no locations to compare")

// Comparison is one row of a location comparison.
type Comparison struct {
	Location  string        `json:"name"`
	Country   string        `json:"country"`
	AQI       int           `json:"aqi"`
	Category  aqi.Category  `json:"category"`
	Color     string        `json:"color"`
	Pollutant aqi.Pollutant `json:"pollutant"`
}

// Compare reports the dominant AQI of each named location, highest first.
// Unknown names fail the whole comparison. A location whose data cannot be
// fetched is left out, and ErrNoData is returned when none can.
func (s *Service) Compare(ctx context.Context, names []string) ([]Comparison, error) {
	var locs []location.Location
	seen := make(map[string]bool)
	for _, name := range names {
		loc, err := s.locations.Lookup(name)
		if err != nil {
			return nil, err
		}
		if !seen[loc.ID()] {
			seen[loc.ID()] = true
			locs = append(locs, loc)
		}
	}
	if len(locs) == 0 {
		return nil, ErrNoLocations
	}

	rows := make([]*Comparison, len(locs))
	var wg sync.WaitGroup
	for i, loc := range locs {
		wg.Add(1)
		go func(i int, loc location.Location) {
			defer wg.Done()
			report, err := s.buildReport(ctx, loc)
			if err != nil {
				s.logger.Warn("left out of comparison", "location", loc.Name, "error", err)
				return
			}
			rows[i] = &Comparison{
				Location:  loc.Name,
				Country:   loc.Country,
				AQI:       report.Dominant.AQI,
				Category:  report.Dominant.Category,
				Color:     report.Dominant.Color,
				Pollutant: report.Dominant.Pollutant,
			}
		}(i, loc)
	}
	wg.Wait()

	out := make([]Comparison, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("compare: %w", ErrNoData)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AQI != out[j].AQI {
			return out[i].AQI > out[j].AQI
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}
