package service

import (
	"sort"
	"sync"

	"airwatch/internal/aqi"
	"airwatch/internal/forecast"
)

// SeriesKey identifies one forecast series.
type SeriesKey struct {
	Location  string        `json:"location"`
	Pollutant aqi.Pollutant `json:"pollutant"`
}

// ModelRegistry holds one forecast model per series. Models are replaced
// whole on restore and retrained in place otherwise.
type ModelRegistry struct {
	cfg forecast.FeatureConfig

	mu     sync.RWMutex
	models map[SeriesKey]*forecast.Model
}

func NewModelRegistry(cfg forecast.FeatureConfig) (*ModelRegistry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ModelRegistry{cfg: cfg, models: make(map[SeriesKey]*forecast.Model)}, nil
}

func (r *ModelRegistry) Get(key SeriesKey) (*forecast.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[key]
	return m, ok
}

// GetOrCreate returns the model for key, creating an untrained one if needed.
func (r *ModelRegistry) GetOrCreate(key SeriesKey) (*forecast.Model, error) {
	if m, ok := r.Get(key); ok {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.models[key]; ok {
		return m, nil
	}
	m, err := forecast.NewModel(r.cfg)
	if err != nil {
		return nil, err
	}
	r.models[key] = m
	return m, nil
}

func (r *ModelRegistry) Put(key SeriesKey, m *forecast.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[key] = m
}

// Keys lists the registered series in a stable order.
func (r *ModelRegistry) Keys() []SeriesKey {
	r.mu.RLock()
	keys := make([]SeriesKey, 0, len(r.models))
	for k := range r.models {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Location != keys[j].Location {
			return keys[i].Location < keys[j].Location
		}
		return keys[i].Pollutant < keys[j].Pollutant
	})
	return keys
}
