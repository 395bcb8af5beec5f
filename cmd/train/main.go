package main

import (
	"context"
	"log"
	"sync"
	"time"

	"airwatch/internal/api"
	"airwatch/internal/cache"
	"airwatch/internal/config"
	"airwatch/internal/database"
	"airwatch/internal/forecast"
	"airwatch/internal/logging"
	"airwatch/internal/service"

	"github.com/go-redis/redis/v8"
)

// maxWorkers bounds concurrent trainings.
const maxWorkers = 8

func main() {
	// Load config
	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	// Initialize database
	dbCfg := config.GetDatabaseConfig()
	db, err := database.NewDB(dbCfg.Driver, dbCfg.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Snapshots go to Redis so the server picks them up on start
	redisCfg := cfg.RedisConfig()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis at %s: %v", redisCfg.Addr, err)
	}
	snapshots := cache.NewRedisProvider(redisClient, redisCfg.Prefix)

	locations, err := db.LocationRegistry(context.Background(), cfg.Locations)
	if err != nil {
		log.Fatalf("Failed to load locations: %v", err)
	}

	client := api.NewOpenMeteoClient(cfg.API.Timeout, api.WithBaseURLs(cfg.API.AirQualityURL, cfg.API.WeatherURL))
	svc, err := service.FromConfig(cfg, locations, client, db, snapshots, logger)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}

	keys := svc.SeriesKeys()
	if len(keys) == 0 {
		log.Fatalf("No locations configured")
	}

	log.Println("Training forecast models for all locations...")

	// Run once (the scheduler handles repetition)
	summary := runTraining(context.Background(), svc, keys, maxWorkers)
	summary.log(len(keys))

	log.Println("Training run completed successfully")
}

// trainer is the part of the service the worker pool drives.
type trainer interface {
	Train(ctx context.Context, nameOrID, pollutant string) (forecast.TrainingMetrics, error)
}

// TrainingResult holds the outcome for a single series
type TrainingResult struct {
	Key            service.SeriesKey
	Metrics        forecast.TrainingMetrics
	Error          error
	ProcessingTime time.Duration
}

type trainingSummary struct {
	Trained  int
	Failed   int
	Workers  int
	Duration time.Duration
	Results  []TrainingResult
}

func runTraining(ctx context.Context, t trainer, keys []service.SeriesKey, workers int) trainingSummary {
	startTime := time.Now()
	log.Printf("Training %d series with worker pool...", len(keys))

	numWorkers := min(workers, len(keys))

	// Create channels for job distribution and result collection
	jobs := make(chan service.SeriesKey, len(keys))
	results := make(chan TrainingResult, len(keys))

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(ctx, t, jobs, results, &wg)
	}

	// Send all series to job queue
	for _, key := range keys {
		jobs <- key
	}
	close(jobs)

	// Wait for all workers to finish, then close results channel
	go func() {
		wg.Wait()
		close(results)
	}()

	summary := trainingSummary{Workers: numWorkers}
	count := 0
	for result := range results {
		count++
		summary.Results = append(summary.Results, result)

		if result.Error != nil {
			log.Printf("[%d/%d] ❌ %s/%s: %v (%.1fs)",
				count, len(keys), result.Key.Location, result.Key.Pollutant, result.Error, result.ProcessingTime.Seconds())
			summary.Failed++
			continue
		}

		summary.Trained++
		log.Printf("[%d/%d] ✓ %s/%s: v%d, %d samples, holdout R² %.3f (%.1fs)",
			count, len(keys), result.Key.Location, result.Key.Pollutant,
			result.Metrics.Version, result.Metrics.Samples, result.Metrics.HoldoutR2, result.ProcessingTime.Seconds())
	}

	summary.Duration = time.Since(startTime)
	return summary
}

func (s trainingSummary) log(total int) {
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("Training complete in %.1f seconds", s.Duration.Seconds())
	log.Printf("  Series: %d trained, %d failed of %d", s.Trained, s.Failed, total)
	log.Printf("  Workers: %d", s.Workers)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// worker trains series from the jobs channel
func worker(ctx context.Context, t trainer, jobs <-chan service.SeriesKey, results chan<- TrainingResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for key := range jobs {
		startTime := time.Now()
		tm, err := t.Train(ctx, key.Location, string(key.Pollutant))
		results <- TrainingResult{
			Key:            key,
			Metrics:        tm,
			Error:          err,
			ProcessingTime: time.Since(startTime),
		}
	}
}
