package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"airwatch/internal/alerts"
	"airwatch/internal/api"
	"airwatch/internal/cache"
	"airwatch/internal/config"
	"airwatch/internal/database"
	"airwatch/internal/logging"
	"airwatch/internal/service"
)

const defaultRefreshInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	dbCfg := config.GetDatabaseConfig()
	db, err := database.NewDB(dbCfg.Driver, dbCfg.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	locations, err := db.LocationRegistry(context.Background(), cfg.Locations)
	if err != nil {
		log.Fatalf("Failed to load locations: %v", err)
	}

	client := api.NewOpenMeteoClient(cfg.API.Timeout,
		api.WithBaseURLs(cfg.API.AirQualityURL, cfg.API.WeatherURL),
		api.WithCache(cache.NewMemoryProvider(), cfg.Cache.TTL),
	)
	svc, err := service.FromConfig(cfg, locations, client, db, nil, logger)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}

	advisories, err := cfg.Advisories()
	if err != nil {
		log.Fatalf("Failed to load advisories: %v", err)
	}

	var publisher alerts.Publisher = alerts.NewLogPublisher(logger)
	if kafkaCfg := config.GetKafkaConfig(); kafkaCfg.Enabled() {
		publisher = alerts.NewKafkaPublisher(kafkaCfg.Brokers, kafkaCfg.AlertTopic, kafkaCfg.Timeout)
	}
	defer publisher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := &monitor{
		svc:       svc,
		db:        db,
		evaluator: alerts.NewEvaluator(cfg.AirQuality.AlertThreshold, time.Hour, advisories),
		publisher: publisher,
		logger:    logger,
	}

	log.Println("Monitor running. Press Ctrl+C to stop...")
	m.run(ctx)
	log.Println("Shutting down monitor...")
}

// reporter builds location reports.
type reporter interface {
	Report(ctx context.Context, nameOrID string) (*service.Report, error)
}

// monitor refreshes the reports of favorite locations on the interval stored
// in the settings table and raises alerts when notifications are enabled.
type monitor struct {
	svc       reporter
	db        *database.DB
	evaluator *alerts.Evaluator
	publisher alerts.Publisher
	logger    *slog.Logger
}

func (m *monitor) run(ctx context.Context) {
	for {
		n, err := m.refresh(ctx)
		if err != nil {
			m.logger.Error("refresh failed", "error", err)
		} else {
			m.logger.Info("refreshed favorites", "locations", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.interval(ctx)):
		}
	}
}

// interval reads refresh_interval (seconds) from the settings table.
func (m *monitor) interval(ctx context.Context) time.Duration {
	v, err := m.db.GetSetting(ctx, "refresh_interval")
	if err != nil {
		return defaultRefreshInterval
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return defaultRefreshInterval
	}
	return time.Duration(secs) * time.Second
}

func (m *monitor) notificationsEnabled(ctx context.Context) bool {
	v, err := m.db.GetSetting(ctx, "notifications_enabled")
	if err != nil {
		return true
	}
	enabled, err := strconv.ParseBool(v)
	return err != nil || enabled
}

// refresh reports on every favorite and returns how many succeeded.
func (m *monitor) refresh(ctx context.Context) (int, error) {
	favorites, err := m.db.GetFavorites(ctx)
	if err != nil {
		return 0, err
	}
	notify := m.notificationsEnabled(ctx)

	done := 0
	for _, fav := range favorites {
		report, err := m.svc.Report(ctx, fav.LocationID)
		if err != nil {
			m.logger.Warn("failed to refresh location", "location", fav.Name, "error", err)
			continue
		}
		done++

		if !notify {
			continue
		}
		for _, r := range report.Pollutants {
			if _, err := m.evaluator.Raise(ctx, m.publisher, report.Location.Name, r); err != nil {
				m.logger.Error("alert not delivered", "location", report.Location.Name, "error", err)
			}
		}
	}
	return done, nil
}
