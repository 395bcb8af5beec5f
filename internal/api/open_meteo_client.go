package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"airwatch/internal/aqi"
	"airwatch/internal/cache"
	"airwatch/internal/metrics"
	"airwatch/internal/models"
)

const (
	DefaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"
	DefaultWeatherURL    = "https://api.open-meteo.com/v1/forecast"

	timeLayout = "2006-01-02T15:04"

	// molar volume of an ideal gas at 25 °C and 1 atm, in litres
	molarVolume = 24.45
)

// AirQualityFields are the hourly Open-Meteo variables mapped to pollutants.
var AirQualityFields = []string{"pm10", "pm2_5", "carbon_monoxide", "nitrogen_dioxide", "sulphur_dioxide", "ozone"}

// WeatherFields are the current-conditions variables read from the forecast API.
var WeatherFields = []string{"temperature_2m", "relative_humidity_2m", "wind_speed_10m", "wind_direction_10m"}

var molarMass = map[aqi.Pollutant]float64{
	aqi.NO2: 46.0055,
	aqi.O3:  47.998,
	aqi.SO2: 64.066,
	aqi.CO:  28.01,
}

// OpenMeteoClient is a client for the Open-Meteo air quality and forecast APIs
type OpenMeteoClient struct {
	client        *http.Client
	airQualityURL string
	weatherURL    string
	cache         cache.Provider
	ttl           time.Duration
}

type Params struct {
	Latitude      float64
	Longitude     float64
	CurrentFields []string
	HourlyFields  []string
	Timezone      string
	PastDays      int // how many days of history to include
	ForecastDays  int // how many days ahead to include
}

type Option func(*OpenMeteoClient)

// WithCache caches raw responses in p for ttl.
func WithCache(p cache.Provider, ttl time.Duration) Option {
	return func(c *OpenMeteoClient) {
		c.cache = p
		c.ttl = ttl
	}
}

// WithBaseURLs overrides the endpoints. Empty values keep the defaults.
func WithBaseURLs(airQualityURL, weatherURL string) Option {
	return func(c *OpenMeteoClient) {
		if airQualityURL != "" {
			c.airQualityURL = airQualityURL
		}
		if weatherURL != "" {
			c.weatherURL = weatherURL
		}
	}
}

// NewOpenMeteoClient creates a new Open-Meteo API client
func NewOpenMeteoClient(timeout time.Duration, opts ...Option) *OpenMeteoClient {
	c := &OpenMeteoClient{
		client:        &http.Client{Timeout: timeout},
		airQualityURL: DefaultAirQualityURL,
		weatherURL:    DefaultWeatherURL,
		cache:         cache.NoopProvider{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildURL builds the request URL for base with the given parameters
func BuildURL(base string, params Params) string {
	if params.Timezone == "" {
		params.Timezone = "GMT"
	}

	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&timezone=%s",
		base, params.Latitude, params.Longitude, params.Timezone)

	if params.PastDays > 0 {
		url += fmt.Sprintf("&past_days=%d", params.PastDays)
	}

	if params.ForecastDays >= 0 {
		url += fmt.Sprintf("&forecast_days=%d", params.ForecastDays)
	}

	if len(params.CurrentFields) > 0 {
		url += "&current=" + strings.Join(params.CurrentFields, ",")
	}

	if len(params.HourlyFields) > 0 {
		url += "&hourly=" + strings.Join(params.HourlyFields, ",")
	}

	return url
}

// AirQuality is an Open-Meteo response normalized into canonical units.
type AirQuality struct {
	Latitude  float64
	Longitude float64
	// Readings holds chronological readings per pollutant; null hours are dropped.
	Readings map[aqi.Pollutant][]aqi.Reading
}

// Latest returns the most recent reading of each pollutant, in display order.
func (a *AirQuality) Latest() []aqi.Reading {
	var out []aqi.Reading
	for _, p := range aqi.Pollutants {
		if rs := a.Readings[p]; len(rs) > 0 {
			out = append(out, rs[len(rs)-1])
		}
	}
	return out
}

// GetAirQuality fetches hourly pollutant concentrations for the past days up to now.
func (c *OpenMeteoClient) GetAirQuality(ctx context.Context, lat, long float64, pastDays int) (*AirQuality, error) {
	url := BuildURL(c.airQualityURL, Params{
		Latitude:     lat,
		Longitude:    long,
		HourlyFields: AirQualityFields,
		PastDays:     pastDays,
		ForecastDays: 1,
	})

	body, err := c.get(ctx, "air_quality", url)
	if err != nil {
		return nil, err
	}

	var resp models.AirQualityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode air quality response: %w", err)
	}
	return Normalize(&resp, time.Now().UTC())
}

// Normalize converts the response into readings, dropping hours after now.
// Gas concentrations arrive in µg/m³ and are converted to ppb, or ppm for CO.
func Normalize(resp *models.AirQualityResponse, now time.Time) (*AirQuality, error) {
	h := resp.Hourly
	columns := map[aqi.Pollutant][]*float64{
		aqi.PM25: h.PM25,
		aqi.PM10: h.PM10,
		aqi.NO2:  h.NitrogenDioxide,
		aqi.O3:   h.Ozone,
		aqi.SO2:  h.SulphurDioxide,
		aqi.CO:   h.CarbonMonoxide,
	}

	times := make([]time.Time, len(h.Time))
	for i, s := range h.Time {
		ts, err := time.ParseInLocation(timeLayout, s, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		times[i] = ts
	}

	out := &AirQuality{
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
		Readings:  make(map[aqi.Pollutant][]aqi.Reading),
	}
	for p, values := range columns {
		for i, v := range values {
			if v == nil || i >= len(times) || times[i].After(now) {
				continue
			}
			out.Readings[p] = append(out.Readings[p], aqi.NewReading(p, ToCanonical(p, *v), times[i]))
		}
		sort.Slice(out.Readings[p], func(i, j int) bool {
			return out.Readings[p][i].Timestamp.Before(out.Readings[p][j].Timestamp)
		})
	}
	return out, nil
}

// ToCanonical converts a µg/m³ concentration into the pollutant's breakpoint unit.
func ToCanonical(p aqi.Pollutant, microgramsPerM3 float64) float64 {
	mw, ok := molarMass[p]
	if !ok {
		return microgramsPerM3
	}
	ppb := microgramsPerM3 * molarVolume / mw
	if p == aqi.CO {
		return ppb / 1000
	}
	return ppb
}

// GetCurrentWeather fetches current temperature, humidity and wind.
func (c *OpenMeteoClient) GetCurrentWeather(ctx context.Context, lat, long float64) (*models.Weather, error) {
	url := BuildURL(c.weatherURL, Params{
		Latitude:      lat,
		Longitude:     long,
		CurrentFields: WeatherFields,
		ForecastDays:  1,
	})

	body, err := c.get(ctx, "weather", url)
	if err != nil {
		return nil, err
	}

	var resp models.WeatherResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	cur := resp.Current
	if cur.Temperature2m == nil || cur.RelativeHumidity2m == nil || cur.WindSpeed10m == nil {
		return nil, fmt.Errorf("weather response is missing current conditions")
	}

	w := &models.Weather{
		TemperatureC: *cur.Temperature2m,
		Humidity:     *cur.RelativeHumidity2m,
		WindSpeedKph: *cur.WindSpeed10m,
	}
	if cur.WindDirection10m != nil {
		w.WindDirection = *cur.WindDirection10m
	}
	if ts, err := time.ParseInLocation(timeLayout, cur.Time, time.UTC); err == nil {
		w.Time = ts
	}
	return w, nil
}

func (c *OpenMeteoClient) get(ctx context.Context, source, url string) ([]byte, error) {
	return cache.GetOrSet(ctx, c.cache, cache.Key("openmeteo", url), c.ttl, func(ctx context.Context) ([]byte, error) {
		body, err := c.fetch(ctx, url)
		metrics.RecordUpstream(source, err)
		return body, err
	})
}

func (c *OpenMeteoClient) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
