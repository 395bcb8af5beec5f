package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airwatch/internal/api"
	"airwatch/internal/cache"
	"airwatch/internal/config"
	"airwatch/internal/database"
	"airwatch/internal/logging"
	"airwatch/internal/server"
	"airwatch/internal/service"

	"github.com/go-redis/redis/v8"
)

func main() {
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

	// Redis backs both the response cache and model snapshots. Without it the
	// server still runs on an in-process cache.
	redisCfg := cfg.RedisConfig()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	defer redisClient.Close()

	var store cache.Provider
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-memory cache", "addr", redisCfg.Addr, "error", err)
		store = cache.NewMemoryProvider()
	} else {
		store = cache.NewRedisProvider(redisClient, redisCfg.Prefix)
	}
	cancel()

	locations, err := db.LocationRegistry(context.Background(), cfg.Locations)
	if err != nil {
		log.Fatalf("Failed to load locations: %v", err)
	}

	client := api.NewOpenMeteoClient(cfg.API.Timeout,
		api.WithBaseURLs(cfg.API.AirQualityURL, cfg.API.WeatherURL),
		api.WithCache(store, cfg.Cache.TTL),
	)

	svc, err := service.FromConfig(cfg, locations, client, db, store, logger)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restored := svc.RestoreSnapshots(ctx)
	log.Printf("✓ Restored %d model snapshots for %d locations", restored, len(svc.Locations()))

	httpServer := server.NewServer(svc, db, logger)

	log.Printf("Starting server on %s", cfg.Server.Addr)
	if err := httpServer.Start(ctx, cfg.Server.Addr, cfg.Server.RequestTimeout, os.Stdout); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Println("Server stopped")
}
