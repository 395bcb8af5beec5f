package weather

import (
	"reflect"
	"testing"

	"airwatch/internal/models"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name    string
		weather *models.Weather
		want    Analysis
	}{
		{
			name:    "no weather",
			weather: nil,
			want:    Analysis{Wind: Unknown, Humidity: Unknown, Temperature: Unknown, Overall: Undetermined, Recommendations: []string{}},
		},
		{
			name:    "mild and breezy",
			weather: &models.Weather{TemperatureC: 18, Humidity: 50, WindSpeedKph: 25},
			want: Analysis{
				Wind: Positive, Humidity: Neutral, Temperature: Neutral, Overall: Favorable,
				Recommendations: []string{"Strong winds help disperse pollutants"},
			},
		},
		{
			name:    "hot still and humid",
			weather: &models.Weather{TemperatureC: 31.5, Humidity: 75, WindSpeedKph: 3.2},
			want: Analysis{
				Wind: Negative, Humidity: Negative, Temperature: Negative, Overall: Unfavorable,
				Recommendations: []string{
					"Low wind speed may trap pollutants",
					"High humidity can worsen air quality perception",
					"High temperatures can increase ozone formation",
				},
			},
		},
		{
			name:    "freezing only",
			weather: &models.Weather{TemperatureC: -4, Humidity: 50, WindSpeedKph: 10},
			want: Analysis{
				Wind: Neutral, Humidity: Neutral, Temperature: Negative, Overall: Moderate,
				Recommendations: []string{"Cold air can trap pollutants near ground"},
			},
		},
		{
			name:    "dry air at boundaries",
			weather: &models.Weather{TemperatureC: 30, Humidity: 20, WindSpeedKph: 5},
			want: Analysis{
				Wind: Neutral, Humidity: Negative, Temperature: Neutral, Overall: Moderate,
				Recommendations: []string{"Low humidity may increase particle suspension"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.weather, DefaultThresholds())
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Analyze() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
