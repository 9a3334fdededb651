// Package config loads process configuration from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is shared by the API server and the schedule worker.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL  string
	MaxConns     int32
	JWTSecret    string
	GotenbergURL string

	ProductName   string
	StrictTotals  bool
	CurrencyTTL   time.Duration
	FeatureTTL    time.Duration
	ExportTimeout time.Duration

	WorkerInterval  time.Duration
	WorkerBatchSize int
	ReportOutputDir string
}

// Development reports whether the process runs with developer logging.
func (c Config) Development() bool {
	return c.Env == "development"
}

// Load reads .env when present, then the environment. DATABASE_URL is required.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:     getEnv("APP_PORT", "8080"),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		MaxConns:     int32(getEnvInt("DB_MAX_CONNS", 10)),
		JWTSecret:    getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		GotenbergURL: getEnv("GOTENBERG_URL", "http://localhost:3000"),

		ProductName:   getEnv("PRODUCT_NAME", "invoiceninja"),
		StrictTotals:  getEnvBool("REPORTS_STRICT_TOTALS", false),
		CurrencyTTL:   getEnvDuration("CURRENCY_CACHE_TTL", 10*time.Minute),
		FeatureTTL:    getEnvDuration("FEATURE_CACHE_TTL", time.Minute),
		ExportTimeout: getEnvDuration("EXPORT_TIMEOUT", 60*time.Second),

		WorkerInterval:  getEnvDuration("WORKER_INTERVAL", time.Minute),
		WorkerBatchSize: getEnvInt("WORKER_BATCH_SIZE", 50),
		ReportOutputDir: getEnv("REPORT_OUTPUT_DIR", "./reports"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("required environment variable DATABASE_URL not set")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
