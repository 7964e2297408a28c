package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/jwols/nws-extract/internal/extract/shared"
	"go.uber.org/zap"
)

// Config holds the runtime configuration
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	RPSLimit    float64
	RPSBurst    int
	// StoreConfig is the JSON blob the store factory consumes.
	StoreConfig string
}

// Load reads configuration from the environment, with an optional .env file.
func Load(logger *zap.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		RPSLimit:    getEnvFloat("RPS_LIMIT", 100, logger),
		RPSBurst:    getEnvInt("RPS_BURST", 200, logger),
		StoreConfig: os.Getenv("STORE_CONFIG"),
	}
	if cfg.StoreConfig == "" {
		cfg.StoreConfig = defaultStoreConfig()
	}

	logger.Info("configuration loaded",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment))
	return cfg
}

// defaultStoreConfig assembles a store config from the conventional PG*
// variables when STORE_CONFIG is not given, falling back to the in-memory
// store when no PGHOST is set.
func defaultStoreConfig() string {
	host := os.Getenv("PGHOST")
	if host == "" {
		b, _ := json.Marshal(shared.StoreConfig{
			StoreType:    shared.StoreTypeMemory,
			ExtraDetails: map[string]interface{}{},
		})
		return string(b)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		getEnv("PGPORT", "5432"),
		getEnv("PGUSER", "postgres"),
		os.Getenv("PGPASSWORD"),
		getEnv("PGDATABASE", "fraud_analysis"),
		getEnv("PGSSLMODE", "disable"))

	b, _ := json.Marshal(shared.StoreConfig{
		StoreType:    shared.StoreTypePostgres,
		ExtraDetails: map[string]interface{}{"conn_str": connStr},
	})
	return string(b)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, logger *zap.Logger) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("invalid integer in environment, using default",
			zap.String("key", key), zap.String("value", value))
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64, logger *zap.Logger) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Warn("invalid float in environment, using default",
			zap.String("key", key), zap.String("value", value))
		return fallback
	}
	return f
}
