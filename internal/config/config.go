package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
// Following 12-factor app principles, all config is loaded from environment variables
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Catalog  CatalogConfig
	Order    OrderConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
	RequestTimeout  int
}

type AuthConfig struct {
	APIKeys []string // Valid API keys for authentication
}

// DatabaseConfig selects the Postgres store. An empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL           string
	MigrationsDir string
}

// RedisConfig enables the catalog cache when Addr is set
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// KafkaConfig enables order event publishing when Brokers is set
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// CatalogConfig lists seed files (paths or http(s) URLs, optionally gzipped)
type CatalogConfig struct {
	SeedSources []string
}

type OrderConfig struct {
	FreeShippingThreshold decimal.Decimal
}

// Load reads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	threshold, err := decimal.NewFromString(getEnv("ORDER_FREE_SHIPPING_THRESHOLD", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: ORDER_FREE_SHIPPING_THRESHOLD: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
			RequestTimeout:  getEnvAsInt("REQUEST_TIMEOUT", 10),
		},
		Auth: AuthConfig{
			APIKeys: getEnvAsSlice("API_KEYS", []string{"apitest"}),
		},
		Database: DatabaseConfig{
			URL:           getEnv("DATABASE_URL", ""),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "internal/repository/migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvAsInt("CATALOG_CACHE_TTL_SECONDS", 900)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: getEnv("KAFKA_BROKERS", ""),
			Topic:   getEnv("KAFKA_ORDERS_TOPIC", "deliverus.orders"),
		},
		Catalog: CatalogConfig{
			SeedSources: getEnvAsSlice("CATALOG_SEED_SOURCES", nil),
		},
		Order: OrderConfig{
			FreeShippingThreshold: threshold,
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.Order.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("ORDER_FREE_SHIPPING_THRESHOLD must not be negative")
	}

	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL_SECONDS must be positive")
	}

	if c.Kafka.Brokers != "" && c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_ORDERS_TOPIC is required when KAFKA_BROKERS is set")
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	values := make([]string, 0)
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
