package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"airwatch/internal/aqi"
)

// Point is a single timestamped concentration.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is the chronological history of one pollutant at one location.
// Timestamps are unique and points are never modified after construction.
type Series struct {
	location  string
	pollutant aqi.Pollutant
	points    []Point
}

// NewSeries sorts readings by time. Readings of another pollutant, invalid
// concentrations and duplicate timestamps are rejected.
func NewSeries(location string, pollutant aqi.Pollutant, readings []aqi.Reading) (*Series, error) {
	points := make([]Point, 0, len(readings))
	for i, r := range readings {
		if r.Pollutant != pollutant {
			return nil, fmt.Errorf("%w: reading %d is %s, series is %s", ErrInvalidSeries, i, r.Pollutant, pollutant)
		}
		points = append(points, Point{Time: r.Timestamp, Value: r.Concentration})
	}
	return SeriesFromPoints(location, pollutant, points)
}

// SeriesFromPoints builds a series from raw points.
func SeriesFromPoints(location string, pollutant aqi.Pollutant, points []Point) (*Series, error) {
	if !pollutant.Valid() {
		return nil, fmt.Errorf("%w: %q", aqi.ErrUnsupportedPollutant, pollutant)
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	for i, p := range sorted {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || p.Value < 0 {
			return nil, fmt.Errorf("%w: %v at %s", aqi.ErrInvalidConcentration, p.Value, p.Time.Format(time.RFC3339))
		}
		if i > 0 && p.Time.Equal(sorted[i-1].Time) {
			return nil, fmt.Errorf("%w: duplicate timestamp %s", ErrInvalidSeries, p.Time.Format(time.RFC3339))
		}
	}

	return &Series{location: location, pollutant: pollutant, points: sorted}, nil
}

func (s *Series) Location() string {
	return s.location
}

func (s *Series) Pollutant() aqi.Pollutant {
	return s.pollutant
}

func (s *Series) Len() int {
	return len(s.points)
}

// Points returns a copy of the series points.
func (s *Series) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Last returns the most recent point.
func (s *Series) Last() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// working returns a private copy with room for n more points.
func (s *Series) working(n int) *Series {
	points := make([]Point, len(s.points), len(s.points)+n)
	copy(points, s.points)
	return &Series{location: s.location, pollutant: s.pollutant, points: points}
}

// before returns the index of the first point at or after t.
func (s *Series) before(t time.Time) int {
	return sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Time.Before(t)
	})
}
