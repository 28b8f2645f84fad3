package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go-hris-ledger/internal/shared/connection"
)

type Config struct {
	Postgres connection.PostgresConfig

	RedisAddr   string
	KafkaBroker string
	JWTSecret   string
	Port        string

	SalaryHistoryPageSize int
	SalaryHistoryCacheTTL time.Duration
	OutboxPollInterval    time.Duration
	ConsumerGroupID       string
}

// LoadConfig reads the process environment. Call godotenv.Load first to
// pick up a local .env file.
func LoadConfig() (Config, error) {
	cfg := Config{
		Postgres: connection.PostgresConfig{
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBroker:     os.Getenv("KAFKA_BROKER"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		Port:            getEnv("PORT", "3000"),
		ConsumerGroupID: getEnv("KAFKA_CONSUMER_GROUP", "go-hris-compensation"),
	}

	var err error
	if cfg.SalaryHistoryPageSize, err = getInt("SALARY_HISTORY_PAGE_SIZE", 10); err != nil {
		return Config{}, err
	}
	if cfg.SalaryHistoryCacheTTL, err = getDuration("SALARY_HISTORY_CACHE_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = getDuration("OUTBOX_POLL_INTERVAL", 3*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.SalaryHistoryPageSize < 1 {
		return Config{}, fmt.Errorf("SALARY_HISTORY_PAGE_SIZE must be positive, got %d", cfg.SalaryHistoryPageSize)
	}

	return cfg, nil
}

func (c Config) RequireKafka() error {
	if c.KafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}
	return nil
}

func (c Config) RequireJWT() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
