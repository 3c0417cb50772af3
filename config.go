package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	aws_pkg "recovery-service/pkg/aws"
)

// Config holds all configuration for the recovery service.
type Config struct {
	Port     string
	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	ScanSNSTopicARN string

	// Recovery pipeline thresholds.
	ScanInterval  time.Duration
	DormantAfter  time.Duration
	FollowUpAfter time.Duration
	ExpireAfter   time.Duration

	StatsCacheTTL time.Duration
}

// LoadConfig reads configuration from environment variables with an optional
// Secrets Manager override for database credentials. The database package
// reads POSTGRES_* from the environment, so overrides are written back there.
func LoadConfig() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8093"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "cart.lifecycle"),
		ScanSNSTopicARN: os.Getenv("SCAN_SNS_TOPIC_ARN"),
		ScanInterval:    getDurationEnv("SCAN_INTERVAL", time.Hour),
		DormantAfter:    getDurationEnv("CART_DORMANT_AFTER", time.Hour),
		FollowUpAfter:   getDurationEnv("CART_FOLLOW_UP_AFTER", 24*time.Hour),
		ExpireAfter:     getDurationEnv("CART_EXPIRE_AFTER", 48*time.Hour),
		StatsCacheTTL:   getDurationEnv("STATS_CACHE_TTL", 5*time.Minute),
	}

	// Override DB credentials from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			sm := aws_pkg.NewSecretsClient(awsCfg)
			if dbjson, err := sm.GetSecret(context.Background(), "recovery/DB_CREDENTIALS"); err == nil && dbjson != "" {
				var m map[string]string
				if err := json.Unmarshal([]byte(dbjson), &m); err == nil {
					for _, key := range []string{"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_HOST", "POSTGRES_PORT"} {
						if v, ok := m[key]; ok && v != "" {
							os.Setenv(key, v)
						}
					}
				}
			}
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
