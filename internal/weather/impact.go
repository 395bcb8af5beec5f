// Package weather relates current weather conditions to air quality.
package weather

import "airwatch/internal/models"

type Impact string

const (
	Positive Impact = "positive"
	Neutral  Impact = "neutral"
	Negative Impact = "negative"
	Unknown  Impact = "unknown"
)

type Conditions string

const (
	Favorable    Conditions = "favorable"
	Moderate     Conditions = "moderate"
	Unfavorable  Conditions = "unfavorable"
	Undetermined Conditions = "unknown"
)

// Analysis describes how current weather is likely to affect pollution.
type Analysis struct {
	Wind            Impact     `json:"wind_impact"`
	Humidity        Impact     `json:"humidity_impact"`
	Temperature     Impact     `json:"temperature_impact"`
	Overall         Conditions `json:"overall_conditions"`
	Recommendations []string   `json:"recommendations"`
}

// Thresholds configures Analyze. Zero values are not meaningful; use DefaultThresholds.
type Thresholds struct {
	StrongWindKph float64 `yaml:"strong_wind_kph"`
	CalmWindKph   float64 `yaml:"calm_wind_kph"`
	HighHumidity  float64 `yaml:"high_humidity"`
	LowHumidity   float64 `yaml:"low_humidity"`
	HotC          float64 `yaml:"hot_c"`
	FreezingC     float64 `yaml:"freezing_c"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongWindKph: 20,
		CalmWindKph:   5,
		HighHumidity:  70,
		LowHumidity:   30,
		HotC:          30,
		FreezingC:     0,
	}
}

// Analyze rates wind, humidity and temperature. Two or more negative factors
// make conditions unfavorable, none makes them favorable. A nil weather
// reading yields an all-unknown analysis.
func Analyze(w *models.Weather, th Thresholds) Analysis {
	a := Analysis{
		Wind:            Unknown,
		Humidity:        Unknown,
		Temperature:     Unknown,
		Overall:         Undetermined,
		Recommendations: []string{},
	}
	if w == nil {
		return a
	}

	switch {
	case w.WindSpeedKph > th.StrongWindKph:
		a.Wind = Positive
		a.Recommendations = append(a.Recommendations, "Strong winds help disperse pollutants")
	case w.WindSpeedKph < th.CalmWindKph:
		a.Wind = Negative
		a.Recommendations = append(a.Recommendations, "Low wind speed may trap pollutants")
	default:
		a.Wind = Neutral
	}

	switch {
	case w.Humidity > th.HighHumidity:
		a.Humidity = Negative
		a.Recommendations = append(a.Recommendations, "High humidity can worsen air quality perception")
	case w.Humidity < th.LowHumidity:
		a.Humidity = Negative
		a.Recommendations = append(a.Recommendations, "Low humidity may increase particle suspension")
	default:
		a.Humidity = Neutral
	}

	switch {
	case w.TemperatureC > th.HotC:
		a.Temperature = Negative
		a.Recommendations = append(a.Recommendations, "High temperatures can increase ozone formation")
	case w.TemperatureC < th.FreezingC:
		a.Temperature = Negative
		a.Recommendations = append(a.Recommendations, "Cold air can trap pollutants near ground")
	default:
		a.Temperature = Neutral
	}

	negatives := 0
	for _, impact := range []Impact{a.Wind, a.Humidity, a.Temperature} {
		if impact == Negative {
			negatives++
		}
	}
	switch {
	case negatives >= 2:
		a.Overall = Unfavorable
	case negatives == 0:
		a.Overall = Favorable
	default:
		a.Overall = Moderate
	}
	return a
}
