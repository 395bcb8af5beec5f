package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"airwatch/internal/api"
	"airwatch/internal/config"
	"airwatch/internal/database"
	"airwatch/internal/location"
	"airwatch/internal/metrics"
	"airwatch/internal/models"

	"github.com/go-redis/redis/v8"
)

// currentDays of past data fetched for locations that already have history.
// One day covers the hours since the previous run across midnight.
const currentDays = 1

func main() {
	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisCfg := cfg.RedisConfig()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	defer redisClient.Close()

	dbCfg := config.GetDatabaseConfig()
	db, err := database.NewDB(dbCfg.Driver, dbCfg.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Seeded locations take precedence over the config file
	registry, err := db.LocationRegistry(ctx, cfg.Locations)
	if err != nil {
		log.Fatalf("Failed to load locations: %v", err)
	}

	client := api.NewOpenMeteoClient(cfg.API.Timeout, api.WithBaseURLs(cfg.API.AirQualityURL, cfg.API.WeatherURL))

	// Get all locations that already have data in the database
	locationsWithData, err := db.GetLocationsWithData(ctx)
	if err != nil {
		log.Fatalf("Failed to get locations with data: %v", err)
	}

	var wg sync.WaitGroup

	// New locations get the full history window, the rest only recent hours
	for _, loc := range registry.All() {
		wg.Add(1)
		go func(loc location.Location) {
			defer wg.Done()

			kind, days := models.BatchCurrent, currentDays
			if !locationsWithData[loc.Name] {
				log.Printf("New location detected: %s - Fetching historical data", loc.Name)
				kind, days = models.BatchHistorical, cfg.Forecast.HistoryDays
			}

			data, err := client.GetAirQuality(ctx, loc.Latitude, loc.Longitude, days)
			if err != nil {
				log.Printf("Failed to fetch air quality for %s: %v", loc.Name, err)
				return
			}

			batch := &models.ReadingBatch{
				Location:    loc,
				Kind:        kind,
				CollectedAt: time.Now().UTC(),
				Readings:    data.Readings,
			}
			if err := sendToRedis(ctx, redisClient, redisCfg.Stream, batch); err != nil {
				log.Printf("Failed to publish to Redis for %s: %v", loc.Name, err)
				return
			}
			log.Printf("Published %s data for %s to Redis (%d readings)", kind, loc.Name, batch.Count())
		}(loc)
	}

	wg.Wait()
	log.Printf("Data collection completed. Exiting")
}

// encodeBatch builds the stream entry values for a batch.
func encodeBatch(batch *models.ReadingBatch) (map[string]interface{}, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize data for %s: %w", batch.Location.Name, err)
	}
	return map[string]interface{}{"data": string(data)}, nil
}

// sendToRedis publishes a batch to the readings stream
func sendToRedis(ctx context.Context, redisClient *redis.Client, stream string, batch *models.ReadingBatch) error {
	values, err := encodeBatch(batch)
	if err != nil {
		metrics.RecordStreamMessage("collect", err)
		return err
	}

	err = redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Err()
	metrics.RecordStreamMessage("collect", err)
	return err
}
