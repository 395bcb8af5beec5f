package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"airwatch/internal/aqi"
	"airwatch/internal/forecast"
	"airwatch/internal/location"
	"airwatch/internal/weather"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Location = location.Location

var (
	instance *Config
	once     sync.Once
)

type Config struct {
	AirQuality struct {
		Pollutants      []string `yaml:"pollutants"`
		BreakpointsFile string   `yaml:"breakpoints_file"`
		AdvisoriesFile  string   `yaml:"advisories_file"`
		AlertThreshold  int      `yaml:"alert_threshold"`
	} `yaml:"air_quality"`
	Forecast struct {
		forecast.FeatureConfig `yaml:",inline"`
		HorizonHours           int `yaml:"horizon_hours"`
		HistoryDays            int `yaml:"history_days"`
	} `yaml:"forecast"`
	API struct {
		AirQualityURL string        `yaml:"air_quality_url"`
		WeatherURL    string        `yaml:"weather_url"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Server struct {
		Addr           string        `yaml:"addr"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Stream   string `yaml:"stream"`
	} `yaml:"redis"`
	Weather weather.Thresholds `yaml:"weather"`
	Logging struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`
	Locations []Location `yaml:"locations"`
}

// Default returns the configuration used for any key the file omits.
func Default() *Config {
	c := &Config{}
	c.AirQuality.Pollutants = []string{"pm25", "pm10", "no2", "o3", "so2", "co"}
	c.AirQuality.AlertThreshold = 150
	c.Forecast.FeatureConfig = forecast.DefaultFeatureConfig()
	c.Forecast.HorizonHours = 24
	c.Forecast.HistoryDays = 7
	c.API.AirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"
	c.API.WeatherURL = "https://api.open-meteo.com/v1/forecast"
	c.API.Timeout = 30 * time.Second
	c.Cache.TTL = 5 * time.Minute
	c.Server.Addr = ":8050"
	c.Server.RequestTimeout = 30 * time.Second
	c.Redis.Addr = "localhost:6379"
	c.Redis.Stream = "air_quality_readings"
	c.Weather = weather.DefaultThresholds()
	c.Logging.Level = "info"
	return c
}

// Load reads .env (when present) and the YAML config once per process.
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		_ = godotenv.Load()

		instance = Default()

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file %s: %w", configPath, readErr)
			return
		}

		if parseErr := yaml.Unmarshal(data, instance); parseErr != nil {
			err = fmt.Errorf("failed to parse config: %w", parseErr)
			return
		}

		if validateErr := instance.validate(); validateErr != nil {
			err = validateErr
			return
		}
	})

	return instance, err
}

func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

// Pollutants returns the configured pollutants in canonical form.
func (c *Config) Pollutants() ([]aqi.Pollutant, error) {
	out := make([]aqi.Pollutant, 0, len(c.AirQuality.Pollutants))
	for _, name := range c.AirQuality.Pollutants {
		p, err := aqi.ParsePollutant(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// BreakpointTable loads the configured breakpoints file or the built-in table.
func (c *Config) BreakpointTable() (*aqi.Table, error) {
	if c.AirQuality.BreakpointsFile == "" {
		return aqi.DefaultTable(), nil
	}
	return aqi.LoadTable(c.AirQuality.BreakpointsFile)
}

// Advisories loads the configured advisories file or the built-in texts.
func (c *Config) Advisories() (*aqi.AdvisoryTable, error) {
	if c.AirQuality.AdvisoriesFile == "" {
		return aqi.DefaultAdvisories(), nil
	}
	return aqi.LoadAdvisories(c.AirQuality.AdvisoriesFile)
}

// LocationRegistry indexes the configured locations, or the major cities
// when none are configured.
func (c *Config) LocationRegistry() (*location.Registry, error) {
	return location.NewRegistry(c.Locations)
}

func (c *Config) validate() error {
	if len(c.AirQuality.Pollutants) == 0 {
		return fmt.Errorf("air_quality.pollutants cannot be empty")
	}
	if _, err := c.Pollutants(); err != nil {
		return fmt.Errorf("air_quality.pollutants: %w", err)
	}
	if c.AirQuality.AlertThreshold < 0 || c.AirQuality.AlertThreshold > 500 {
		return fmt.Errorf("air_quality.alert_threshold must be between 0 and 500, got %d", c.AirQuality.AlertThreshold)
	}
	if err := c.Forecast.FeatureConfig.Validate(); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	if c.Forecast.HorizonHours <= 0 {
		return fmt.Errorf("forecast.horizon_hours must be positive, got %d", c.Forecast.HorizonHours)
	}
	if limit := c.Forecast.MaxHorizon(); c.Forecast.HorizonHours > limit {
		return fmt.Errorf("forecast.horizon_hours %d exceeds forecast.max_horizon_hours %d", c.Forecast.HorizonHours, limit)
	}
	if c.Forecast.HistoryDays <= 0 {
		return fmt.Errorf("forecast.history_days must be positive, got %d", c.Forecast.HistoryDays)
	}
	for i, loc := range c.Locations {
		if err := loc.Validate(); err != nil {
			return fmt.Errorf("locations[%d]: %w", i, err)
		}
	}
	return nil
}
