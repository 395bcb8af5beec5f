package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"airwatch/internal/alerts"
	"airwatch/internal/aqi"
	"airwatch/internal/config"
	"airwatch/internal/database"
	"airwatch/internal/logging"
	"airwatch/internal/metrics"
	"airwatch/internal/models"

	"github.com/go-redis/redis/v8"
)

// alertCooldown suppresses repeated alerts of the same category.
const alertCooldown = time.Hour

func main() {
	// Load config
	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	// Initialize Redis client
	redisCfg := cfg.RedisConfig()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	defer redisClient.Close()

	// Initialize database
	dbCfg := config.GetDatabaseConfig()
	db, err := database.NewDB(dbCfg.Driver, dbCfg.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	table, err := cfg.BreakpointTable()
	if err != nil {
		log.Fatalf("Failed to load breakpoints: %v", err)
	}
	advisories, err := cfg.Advisories()
	if err != nil {
		log.Fatalf("Failed to load advisories: %v", err)
	}

	var publisher alerts.Publisher
	if kafkaCfg := config.GetKafkaConfig(); kafkaCfg.Enabled() {
		publisher = alerts.NewKafkaPublisher(kafkaCfg.Brokers, kafkaCfg.AlertTopic, kafkaCfg.Timeout)
		log.Printf("Publishing alerts to Kafka topic %s", kafkaCfg.AlertTopic)
	} else {
		publisher = alerts.NewLogPublisher(logger)
		log.Println("KAFKA_BROKERS not set, alerts are only logged")
	}
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &processor{
		db:        db,
		calc:      aqi.NewCalculator(table),
		evaluator: alerts.NewEvaluator(alertThreshold(ctx, db, cfg.AirQuality.AlertThreshold), alertCooldown, advisories),
		publisher: publisher,
		logger:    logger,
	}

	// Consumer group and name
	consumerGroup := redisCfg.Group
	consumerName := consumerName()
	stream := redisCfg.Stream

	// Create consumer group if it doesn't exist
	err = redisClient.XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		log.Fatalf("Failed to create consumer group: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Handle shutdown signal
	go func() {
		<-quit
		log.Println("Shutting down store service...")
		cancel()
	}()

	log.Println("Store into db started, reading from Redis stream. Press Ctrl+C to stop...")

	// Read from stream in a loop
	for {
		msgs, err := redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: consumerName,
			Streams:  []string{stream, ">"},
			Count:    10,              // Process up to 10 messages at a time
			Block:    time.Second * 5, // Block for 5 seconds if no messages
		}).Result()

		if ctx.Err() != nil {
			// Context cancelled, exit gracefully
			break
		}

		if err != nil && err != redis.Nil {
			log.Printf("Error reading from Redis: %v", err)
			continue
		}

		for _, msg := range msgs {
			for _, m := range msg.Messages {
				// Check if shutdown requested
				if ctx.Err() != nil {
					log.Println("Store service stopped")
					return
				}

				raw, _ := m.Values["data"].(string)
				_, err := p.handle(ctx, raw)
				metrics.RecordStreamMessage("store", err)
				if err != nil {
					log.Printf("Failed to process message %s: %v", m.ID, err)
					// malformed entries are acked so they are not redelivered forever
				}

				// Acknowledge the message
				redisClient.XAck(context.Background(), stream, consumerGroup, m.ID)
			}
		}
	}

	log.Println("Store service stopped")
}

func consumerName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return "store-" + host
	}
	return "store-1"
}

// alertThreshold prefers the aqi_alert_threshold setting over the config file.
func alertThreshold(ctx context.Context, db *database.DB, fallback int) int {
	v, err := db.GetSetting(ctx, "aqi_alert_threshold")
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// processor stores one batch from the stream and raises its alerts.
type processor struct {
	db        *database.DB
	calc      *aqi.Calculator
	evaluator *alerts.Evaluator
	publisher alerts.Publisher
	logger    *slog.Logger
}

// processResult summarizes one stored batch.
type processResult struct {
	Stored   int
	Snapshot *models.AQISnapshot
	Alerts   []*alerts.Alert
}

func (p *processor) handle(ctx context.Context, raw string) (*processResult, error) {
	var batch models.ReadingBatch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	loc := batch.Location
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	res := &processResult{}
	var latest []aqi.Reading
	for _, pollutant := range aqi.Pollutants {
		readings := batch.Readings[pollutant]
		if len(readings) == 0 {
			continue
		}
		n, err := p.db.StoreMeasurements(ctx, loc.Name, readings)
		if err != nil {
			return nil, fmt.Errorf("failed to store %s readings for %s: %w", pollutant, loc.Name, err)
		}
		res.Stored += n
		latest = append(latest, readings[len(readings)-1])
	}

	log.Printf("✓ Stored %s data for %s (%.2f, %.2f): %d new of %d readings",
		batch.Kind, loc.Name, loc.Latitude, loc.Longitude, res.Stored, batch.Count())

	if len(latest) == 0 {
		return res, nil
	}

	var dominant aqi.Result
	var dominantAt time.Time
	for _, r := range latest {
		result, err := p.calc.ComputeReading(r)
		if err != nil {
			p.logger.Warn("skipping reading", "location", loc.Name, "pollutant", r.Pollutant, "error", err)
			continue
		}
		metrics.RecordAQI(string(r.Pollutant), result.Category.String())
		if dominantAt.IsZero() || result.AQI > dominant.AQI {
			dominant, dominantAt = result, r.Timestamp
		}

		a, err := p.evaluator.Raise(ctx, p.publisher, loc.Name, result)
		if err != nil {
			p.logger.Error("alert not delivered", "location", loc.Name, "pollutant", r.Pollutant, "error", err)
			continue
		}
		if a != nil {
			res.Alerts = append(res.Alerts, a)
		}
	}

	if dominantAt.IsZero() {
		return res, nil
	}
	res.Snapshot = &models.AQISnapshot{
		Location:  loc.Name,
		Timestamp: dominantAt,
		Pollutant: string(dominant.Pollutant),
		AQI:       dominant.AQI,
		Category:  dominant.Category.String(),
	}
	if err := p.db.StoreAQISnapshot(ctx, res.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to store aqi snapshot for %s: %w", loc.Name, err)
	}
	return res, nil
}
