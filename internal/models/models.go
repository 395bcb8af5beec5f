package models

import (
	"time"

	"airwatch/internal/aqi"
	"airwatch/internal/location"
)

// AirQualityResponse is the Open-Meteo air quality payload
type AirQualityResponse struct {
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Timezone         string            `json:"timezone"`
	HourlyUnits      map[string]string `json:"hourly_units"`
	Hourly           AirQualityHourly  `json:"hourly"`
	GenerationTimeMs float64           `json:"generation_time_ms"`
}

// AirQualityHourly holds one slice per pollutant, aligned with Time.
// Missing hours are null.
type AirQualityHourly struct {
	Time            []string   `json:"time"`
	PM10            []*float64 `json:"pm10"`
	PM25            []*float64 `json:"pm2_5"`
	CarbonMonoxide  []*float64 `json:"carbon_monoxide"`
	NitrogenDioxide []*float64 `json:"nitrogen_dioxide"`
	SulphurDioxide  []*float64 `json:"sulphur_dioxide"`
	Ozone           []*float64 `json:"ozone"`
}

// WeatherResponse is the Open-Meteo forecast payload restricted to current conditions
type WeatherResponse struct {
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	Timezone     string            `json:"timezone"`
	CurrentUnits map[string]string `json:"current_units"`
	Current      CurrentWeather    `json:"current"`
}

type CurrentWeather struct {
	Time               string   `json:"time"`
	Temperature2m      *float64 `json:"temperature_2m"`
	RelativeHumidity2m *float64 `json:"relative_humidity_2m"`
	WindSpeed10m       *float64 `json:"wind_speed_10m"`
	WindDirection10m   *float64 `json:"wind_direction_10m"`
}

// Weather is the normalized current weather at a location
type Weather struct {
	Time          time.Time `json:"time"`
	TemperatureC  float64   `json:"temperature_c"`
	Humidity      float64   `json:"humidity"`
	WindSpeedKph  float64   `json:"wind_speed_kph"`
	WindDirection float64   `json:"wind_direction"`
}

// Measurement represents a single stored pollutant reading
type Measurement struct {
	ID            int64     `json:"id"`
	Location      string    `json:"location"`
	Pollutant     string    `json:"pollutant"`
	Timestamp     time.Time `json:"timestamp"`
	Concentration float64   `json:"concentration"`
	Unit          string    `json:"unit"`
}

// AQISnapshot is the dominant AQI recorded for a location at a point in time
type AQISnapshot struct {
	ID        int64     `json:"id"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	Pollutant string    `json:"pollutant"`
	AQI       int       `json:"aqi"`
	Category  string    `json:"category"`
}

// TrainingRun records one forecast model training
type TrainingRun struct {
	ID        int64     `json:"id"`
	Location  string    `json:"location"`
	Pollutant string    `json:"pollutant"`
	TrainedAt time.Time `json:"trained_at"`
	Samples   int       `json:"samples"`
	TrainR2   float64   `json:"train_r2"`
	HoldoutR2 float64   `json:"holdout_r2"`
	Version   uint64    `json:"version"`
}

// Favorite is a bookmarked location
type Favorite struct {
	ID         int64     `json:"id"`
	LocationID string    `json:"location_id"`
	Name       string    `json:"name"`
	Country    string    `json:"country,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	AddedAt    time.Time `json:"added_at"`
}

// HistoryEntry records a location view
type HistoryEntry struct {
	ID         int64     `json:"id"`
	LocationID string    `json:"location_id"`
	Name       string    `json:"name"`
	Country    string    `json:"country,omitempty"`
	ViewedAt   time.Time `json:"viewed_at"`
}

// Batch kinds published on the readings stream.
const (
	BatchHistorical = "historical"
	BatchCurrent    = "current"
)

// ReadingBatch is one location's normalized readings as they travel from the
// collector to the store.
type ReadingBatch struct {
	Location    location.Location               `json:"location"`
	Kind        string                          `json:"type"`
	CollectedAt time.Time                       `json:"collected_at"`
	Readings    map[aqi.Pollutant][]aqi.Reading `json:"readings"`
}

// Count returns the number of readings over all pollutants.
func (b *ReadingBatch) Count() int {
	n := 0
	for _, rs := range b.Readings {
		n += len(rs)
	}
	return n
}
