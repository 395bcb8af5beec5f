package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	// Prefix namespaces cache keys.
	Prefix string
}

func GetRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvAsInt("REDIS_DB", 0),
		Stream:   getEnv("REDIS_STREAM", "air_quality_readings"),
		Group:    getEnv("REDIS_GROUP", "airwatch_store"),
		Prefix:   getEnv("REDIS_PREFIX", "airwatch:"),
	}
}

// RedisConfig is the redis section of the file with environment overrides.
func (c *Config) RedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", c.Redis.Addr),
		Password: getEnv("REDIS_PASSWORD", c.Redis.Password),
		DB:       getEnvAsInt("REDIS_DB", c.Redis.DB),
		Stream:   getEnv("REDIS_STREAM", c.Redis.Stream),
		Group:    getEnv("REDIS_GROUP", "airwatch_store"),
		Prefix:   getEnv("REDIS_PREFIX", "airwatch:"),
	}
}

type KafkaConfig struct {
	Brokers    []string
	AlertTopic string
	Timeout    time.Duration
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// GetKafkaConfig reads KAFKA_BROKERS as a comma separated list. Alerts are
// only logged when it is empty.
func GetKafkaConfig() KafkaConfig {
	var brokers []string
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return KafkaConfig{
		Brokers:    brokers,
		AlertTopic: getEnv("KAFKA_TOPIC_ALERTS", "airwatch.alerts"),
		Timeout:    getEnvAsDuration("KAFKA_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
