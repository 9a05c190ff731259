package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppURL                   string
	DatabaseDriver           string
	DatabaseDSN              string
	RateLimit                int
	RedisEnabled             bool
	RedisAddr                string
	NotifyKeyPrefix          string
	NotifyWorkers            int
	NotifyQueueSize          int
	NotifyInboxSize          int
	SweepIntervalSeconds     int
	AssignmentTimeoutMinutes int
	BadgeRulesPath           string
	ShutdownTimeoutSeconds   int
}

func Load() Config {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")
	redisHost := getEnv("REDIS_HOST", "127.0.0.1")
	redisPort := getEnv("REDIS_PORT", "6379")

	cfg := Config{
		AppURL:                   fmt.Sprintf("%s:%s", appHost, appPort),
		DatabaseDriver:           getEnv("DATABASE_DRIVER", DriverSQLite),
		DatabaseDSN:              getEnv("DATABASE_DSN", "surplus.db"),
		RateLimit:                getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		RedisEnabled:             getEnvAsBool("REDIS_ENABLED", false),
		RedisAddr:                fmt.Sprintf("%s:%s", redisHost, redisPort),
		NotifyKeyPrefix:          getEnv("NOTIFY_KEY_PREFIX", "surplus"),
		NotifyWorkers:            getEnvAsInt("NOTIFY_WORKERS", 4),
		NotifyQueueSize:          getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		NotifyInboxSize:          getEnvAsInt("NOTIFY_INBOX_SIZE", 500),
		SweepIntervalSeconds:     getEnvAsInt("SWEEP_INTERVAL_SECONDS", 60),
		AssignmentTimeoutMinutes: getEnvAsInt("ASSIGNMENT_TIMEOUT_MINUTES", 120),
		BadgeRulesPath:           getEnv("BADGE_RULES_PATH", ""),
		ShutdownTimeoutSeconds:   getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20),
	}

	if err := validate(cfg); err != nil {
		log.Fatal(err)
	}
	return cfg
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c Config) AssignmentTimeout() time.Duration {
	return time.Duration(c.AssignmentTimeoutMinutes) * time.Minute
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func validate(cfg Config) error {
	switch {
	case cfg.AppURL == "":
		return fmt.Errorf("APP_HOST and APP_PORT must not be empty (e.g. 127.0.0.1:8080)")
	case cfg.DatabaseDriver != DriverSQLite && cfg.DatabaseDriver != DriverPostgres:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, cfg.DatabaseDriver)
	case cfg.DatabaseDSN == "":
		return fmt.Errorf("DATABASE_DSN must not be empty")
	case cfg.RateLimit <= 0:
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be greater than 0")
	case cfg.NotifyKeyPrefix == "":
		return fmt.Errorf("NOTIFY_KEY_PREFIX must not be empty")
	case cfg.NotifyWorkers <= 0:
		return fmt.Errorf("NOTIFY_WORKERS must be greater than 0")
	case cfg.NotifyQueueSize <= 0:
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be greater than 0")
	case cfg.NotifyInboxSize <= 0:
		return fmt.Errorf("NOTIFY_INBOX_SIZE must be greater than 0")
	case cfg.SweepIntervalSeconds <= 0:
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be greater than 0")
	case cfg.AssignmentTimeoutMinutes <= 0:
		return fmt.Errorf("ASSIGNMENT_TIMEOUT_MINUTES must be greater than 0")
	case cfg.ShutdownTimeoutSeconds <= 0:
		return fmt.Errorf("SHUTDOWN_TIMEOUT_SECONDS must be greater than 0")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s", key)
		}
		return i
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Fatalf("invalid boolean value for %s", key)
		}
		return b
	}
	return defaultVal
}
