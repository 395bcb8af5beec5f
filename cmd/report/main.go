// Command report prints the live report of one location, and its forecast
// when a pollutant is given, without touching storage.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"airwatch/internal/api"
	"airwatch/internal/config"
	"airwatch/internal/logging"
	"airwatch/internal/service"
)

func main() {
	loc := flag.String("location", "Paris", "location name or id")
	pollutant := flag.String("pollutant", "", "forecast this pollutant as well")
	horizon := flag.Int("horizon", 0, "forecast hours, 0 for the configured default")
	flag.Parse()

	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.JSON)

	client := api.NewOpenMeteoClient(cfg.API.Timeout, api.WithBaseURLs(cfg.API.AirQualityURL, cfg.API.WeatherURL))
	svc, err := service.FromConfig(cfg, nil, client, nil, nil, logger)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}
	ctx := context.Background()

	fmt.Println("=== Air Quality Report ===")
	report, err := svc.Report(ctx, *loc)
	if err != nil {
		log.Fatalf("Failed to build report: %v", err)
	}
	printJSON(report)

	if *pollutant == "" {
		return
	}

	fmt.Printf("\n=== %s Forecast ===\n", *pollutant)
	fc, err := svc.Forecast(ctx, *loc, *pollutant, *horizon)
	if err != nil {
		log.Fatalf("Failed to forecast: %v", err)
	}
	printJSON(fc)

	fmt.Println("\n=== Forecast Summary ===")
	fmt.Printf("Trend: %s\n", fc.Forecast.Trend)
	fmt.Printf("Mean: %.1f, Min: %.1f, Max: %.1f\n", fc.Forecast.Summary.Mean, fc.Forecast.Summary.Min, fc.Forecast.Summary.Max)
	fmt.Printf("Peak AQI: %d (%s)\n", fc.Peak.AQI, fc.Peak.Category)
	fmt.Printf("Holdout R²: %.3f on %d samples\n", fc.Metrics.HoldoutR2, fc.Metrics.HoldoutSamples)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(data))
}
