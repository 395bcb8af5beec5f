// Package location resolves the places AirWatch monitors.
package location

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0088

var (
	ErrUnknownLocation = errors.New("unknown location")
	ErrQueryTooShort   = errors.New("search query too short")
)

// MinQueryLength and DefaultSearchLimit bound Registry.Search.
const (
	MinQueryLength     = 2
	DefaultSearchLimit = 20
)

type Location struct {
	Name      string  `yaml:"name" json:"name"`
	Country   string  `yaml:"country" json:"country,omitempty"`
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// ID is the stable lower-case identifier used in URLs and storage keys.
func (l Location) ID() string {
	return strings.Join(strings.Fields(strings.ToLower(l.Name)), "-")
}

func (l Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("location name cannot be empty")
	}
	if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("location %s: coordinates out of range (%v, %v)", l.Name, l.Latitude, l.Longitude)
	}
	return nil
}

// MajorCities is used when no locations are configured.
var MajorCities = []Location{
	{Name: "Paris", Country: "FR", Latitude: 48.8566, Longitude: 2.3522},
	{Name: "London", Country: "GB", Latitude: 51.5074, Longitude: -0.1278},
	{Name: "New York", Country: "US", Latitude: 40.7128, Longitude: -74.0060},
	{Name: "Tokyo", Country: "JP", Latitude: 35.6762, Longitude: 139.6503},
	{Name: "Beijing", Country: "CN", Latitude: 39.9042, Longitude: 116.4074},
	{Name: "Delhi", Country: "IN", Latitude: 28.7041, Longitude: 77.1025},
	{Name: "Mumbai", Country: "IN", Latitude: 19.0760, Longitude: 72.8777},
	{Name: "São Paulo", Country: "BR", Latitude: -23.5505, Longitude: -46.6333},
	{Name: "Mexico City", Country: "MX", Latitude: 19.4326, Longitude: -99.1332},
	{Name: "Cairo", Country: "EG", Latitude: 30.0444, Longitude: 31.2357},
	{Name: "Los Angeles", Country: "US", Latitude: 34.0522, Longitude: -118.2437},
	{Name: "Sydney", Country: "AU", Latitude: -33.8688, Longitude: 151.2093},
}

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// Registry is an immutable set of locations keyed by ID.
type Registry struct {
	byID  map[string]Location
	order []Location
}

// NewRegistry validates locs; an empty list selects MajorCities.
func NewRegistry(locs []Location) (*Registry, error) {
	if len(locs) == 0 {
		locs = MajorCities
	}
	r := &Registry{byID: make(map[string]Location, len(locs))}
	for _, l := range locs {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[l.ID()]; dup {
			return nil, fmt.Errorf("duplicate location %s", l.Name)
		}
		r.byID[l.ID()] = l
		r.order = append(r.order, l)
	}
	sort.SliceStable(r.order, func(i, j int) bool { return r.order[i].Name < r.order[j].Name })
	return r, nil
}

// Lookup accepts a location ID or name in any case.
func (r *Registry) Lookup(nameOrID string) (Location, error) {
	id := Location{Name: nameOrID}.ID()
	if l, ok := r.byID[id]; ok {
		return l, nil
	}
	return Location{}, fmt.Errorf("%w: %q", ErrUnknownLocation, nameOrID)
}

// All returns the locations ordered by name.
func (r *Registry) All() []Location {
	return append([]Location(nil), r.order...)
}

// Nearest returns the closest location to a point and its distance in km.
func (r *Registry) Nearest(lat, lon float64) (Location, float64) {
	p := s2.LatLngFromDegrees(lat, lon)
	var best Location
	bestDist := -1.0
	for _, l := range r.order {
		d := p.Distance(s2.LatLngFromDegrees(l.Latitude, l.Longitude)).Radians() * EarthRadiusKm
		if bestDist < 0 || d < bestDist {
			best, bestDist = l, d
		}
	}
	return best, bestDist
}

// Search returns up to limit locations whose name or country contains query,
// ignoring case. Names starting with the query come first. A limit of 0 or
// less selects DefaultSearchLimit.
func (r *Registry) Search(query string, limit int) ([]Location, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < MinQueryLength {
		return nil, fmt.Errorf("%w: %q, need at least %d characters", ErrQueryTooShort, query, MinQueryLength)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var prefix, other []Location
	for _, l := range r.order {
		name := strings.ToLower(l.Name)
		switch {
		case strings.HasPrefix(name, q):
			prefix = append(prefix, l)
		case strings.Contains(name, q), strings.Contains(strings.ToLower(l.Country), q):
			other = append(other, l)
		}
	}

	out := append(prefix, other...)
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Location{}
	}
	return out, nil
}
