package aqi

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnsupportedPollutant = errors.New("unsupported pollutant")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrInvalidConcentration = errors.New("invalid concentration")
)

// Pollutant identifies one of the pollutants the AQI is defined for.
type Pollutant string

const (
	PM25 Pollutant = "pm25"
	PM10 Pollutant = "pm10"
	NO2  Pollutant = "no2"
	O3   Pollutant = "o3"
	SO2  Pollutant = "so2"
	CO   Pollutant = "co"
)

// Pollutants lists every supported pollutant in display order.
var Pollutants = []Pollutant{PM25, PM10, NO2, O3, SO2, CO}

var pollutantAliases = map[string]Pollutant{
	"pm25":             PM25,
	"pm2.5":            PM25,
	"pm2_5":            PM25,
	"pm10":             PM10,
	"no2":              NO2,
	"nitrogen_dioxide": NO2,
	"o3":               O3,
	"ozone":            O3,
	"so2":              SO2,
	"sulphur_dioxide":  SO2,
	"sulfur_dioxide":   SO2,
	"co":               CO,
	"carbon_monoxide":  CO,
}

// ParsePollutant accepts canonical ids, display names and Open-Meteo field names.
func ParsePollutant(s string) (Pollutant, error) {
	if p, ok := pollutantAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPollutant, s)
}

// Valid reports whether p is one of the six supported pollutants.
func (p Pollutant) Valid() bool {
	switch p {
	case PM25, PM10, NO2, O3, SO2, CO:
		return true
	}
	return false
}

// DisplayName returns the human readable pollutant name.
func (p Pollutant) DisplayName() string {
	switch p {
	case PM25:
		return "PM2.5"
	case PM10:
		return "PM10"
	case NO2:
		return "NO2"
	case O3:
		return "O3"
	case SO2:
		return "SO2"
	case CO:
		return "CO"
	}
	return strings.ToUpper(string(p))
}

// Unit returns the canonical concentration unit used by the breakpoint tables.
func (p Pollutant) Unit() string {
	switch p {
	case PM25, PM10:
		return "µg/m³"
	case CO:
		return "ppm"
	default:
		return "ppb"
	}
}

// Reading is a single unit-normalized pollutant measurement.
type Reading struct {
	Pollutant     Pollutant `json:"pollutant"`
	Concentration float64   `json:"concentration"`
	Unit          string    `json:"unit"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewReading builds a reading in the pollutant's canonical unit.
func NewReading(p Pollutant, concentration float64, ts time.Time) Reading {
	return Reading{
		Pollutant:     p,
		Concentration: concentration,
		Unit:          p.Unit(),
		Timestamp:     ts,
	}
}
