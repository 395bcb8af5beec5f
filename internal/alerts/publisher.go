package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"airwatch/internal/metrics"

	"github.com/segmentio/kafka-go"
)

// Publisher delivers alerts to subscribers.
type Publisher interface {
	Publish(ctx context.Context, a *Alert) error
	Close() error
}

// KafkaPublisher writes alerts as JSON, keyed by location so a location's
// alerts stay ordered within one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: timeout,
			Async:        false,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, a *Alert) error {
	value, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(a.Location),
		Value: value,
		Time:  a.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write alert: %w", err)
	}
	metrics.RecordAlert()
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher logs alerts; used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, a *Alert) error {
	p.logger.Warn("air quality alert",
		"id", a.ID,
		"location", a.Location,
		"pollutant", a.Pollutant,
		"aqi", a.AQI,
		"category", a.Category.String(),
		"severity", a.Severity,
	)
	metrics.RecordAlert()
	return nil
}

func (p *LogPublisher) Close() error { return nil }
