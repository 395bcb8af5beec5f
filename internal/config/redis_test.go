package config

import (
	"os"
	"testing"
	"time"
)

func TestGetRedisConfig_FromEnvVars(t *testing.T) {
	t.Setenv("REDIS_ADDR", "testhost:6380")
	t.Setenv("REDIS_PASSWORD", "testpassword")
	t.Setenv("REDIS_DB", "5")
	t.Setenv("REDIS_STREAM", "test_stream")
	t.Setenv("REDIS_GROUP", "test_group")

	cfg := GetRedisConfig()

	if cfg.Addr != "testhost:6380" {
		t.Errorf("GetRedisConfig().Addr = %v, want %v", cfg.Addr, "testhost:6380")
	}

	if cfg.Password != "testpassword" {
		t.Errorf("GetRedisConfig().Password = %v, want %v", cfg.Password, "testpassword")
	}

	if cfg.DB != 5 {
		t.Errorf("GetRedisConfig().DB = %v, want %v", cfg.DB, 5)
	}

	if cfg.Stream != "test_stream" || cfg.Group != "test_group" {
		t.Errorf("GetRedisConfig() stream/group = %v/%v, want test_stream/test_group", cfg.Stream, cfg.Group)
	}
}

func TestGetRedisConfig_Defaults(t *testing.T) {
	for _, key := range []string{"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_STREAM", "REDIS_GROUP"} {
		t.Setenv(key, "")
	}

	cfg := GetRedisConfig()

	if cfg.Addr != "localhost:6379" {
		t.Errorf("GetRedisConfig().Addr = %v, want %v", cfg.Addr, "localhost:6379")
	}

	if cfg.DB != 0 {
		t.Errorf("GetRedisConfig().DB = %v, want %v", cfg.DB, 0)
	}

	if cfg.Stream != "air_quality_readings" {
		t.Errorf("GetRedisConfig().Stream = %v, want %v", cfg.Stream, "air_quality_readings")
	}
}

func TestConfig_RedisConfig(t *testing.T) {
	for _, key := range []string{"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_STREAM", "REDIS_GROUP", "REDIS_PREFIX"} {
		t.Setenv(key, "")
	}
	c := Default()
	c.Redis.Addr = "cache:6379"
	c.Redis.DB = 2

	got := c.RedisConfig()
	if got.Addr != "cache:6379" || got.DB != 2 || got.Stream != "air_quality_readings" || got.Prefix != "airwatch:" {
		t.Errorf("RedisConfig() = %+v", got)
	}

	t.Setenv("REDIS_ADDR", "override:6379")
	if got := c.RedisConfig(); got.Addr != "override:6379" {
		t.Errorf("RedisConfig().Addr = %v, want override:6379", got.Addr)
	}
}

func TestGetRedisConfig_InvalidDB(t *testing.T) {
	t.Setenv("REDIS_DB", "invalid")

	cfg := GetRedisConfig()

	if cfg.DB != 0 {
		t.Errorf("GetRedisConfig().DB = %v, want %v (default on parse error)", cfg.DB, 0)
	}
}

func TestGetKafkaConfig(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TIMEOUT", "")
	if cfg := GetKafkaConfig(); cfg.Enabled() {
		t.Errorf("GetKafkaConfig().Enabled() = true with no brokers")
	}

	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KAFKA_TIMEOUT", "3s")
	cfg := GetKafkaConfig()
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "k2:9092" {
		t.Errorf("GetKafkaConfig().Brokers = %v, want [k1:9092 k2:9092]", cfg.Brokers)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("GetKafkaConfig().Timeout = %v, want 3s", cfg.Timeout)
	}
	if cfg.AlertTopic != "airwatch.alerts" {
		t.Errorf("GetKafkaConfig().AlertTopic = %v, want airwatch.alerts", cfg.AlertTopic)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "env var set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "env var not set",
			key:          "TEST_KEY_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "not-a-duration")
	if got := getEnvAsDuration("TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("getEnvAsDuration() = %v, want %v", got, time.Minute)
	}

	t.Setenv("TEST_DURATION", "90s")
	if got := getEnvAsDuration("TEST_DURATION", time.Minute); got != 90*time.Second {
		t.Errorf("getEnvAsDuration() = %v, want %v", got, 90*time.Second)
	}
}
