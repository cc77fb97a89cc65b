package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	billingapp "shop-billing/internal/billing/application"
)

type config struct {
	HTTPAddr       string         `yaml:"http_addr"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	Database       databaseConfig `yaml:"database"`
	Billing        billingConfig  `yaml:"billing"`
}

type databaseConfig struct {
	URL             string        `yaml:"url"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	AcquireTimeout  time.Duration `yaml:"acquire_timeout"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

type billingConfig struct {
	MonthlyPolicy string `yaml:"monthly_policy"`
	MaxDepth      int    `yaml:"max_depth"`
	BatchSize     int    `yaml:"batch_size"`
	Parallelism   int    `yaml:"parallelism"`
}

// loadConfig reads env defaults, then overlays the YAML file named by BILLING_CONFIG.
func loadConfig() (config, error) {
	cfg := config{
		HTTPAddr:       getenvDefault("HTTP_ADDR", ":8080"),
		AllowedOrigins: splitCSV(getenvDefault("CORS_ALLOWED_ORIGINS", "")),
		Database: databaseConfig{
			URL:             getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
			MaxConns:        getenvIntDefault("DB_MAX_CONNS", 10),
			MinConns:        getenvIntDefault("DB_MIN_CONNS", 0),
			AcquireTimeout:  getenvDuration("DB_ACQUIRE_TIMEOUT", 2*time.Second),
			MaxConnLifetime: getenvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			AutoMigrate:     getenvBool("DB_AUTO_MIGRATE", false),
		},
		Billing: billingConfig{
			MonthlyPolicy: getenvDefault("BILLING_MONTHLY_POLICY", string(billingapp.MonthlyDerived)),
			MaxDepth:      getenvIntDefault("BILLING_MAX_DEPTH", 64),
			BatchSize:     getenvIntDefault("BILLING_BATCH_SIZE", 500),
			Parallelism:   getenvIntDefault("BILLING_PARALLELISM", 4),
		},
	}

	if path := os.Getenv("BILLING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if cfg.Database.URL == "" {
		return cfg, errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if cfg.Database.MaxConns <= 0 {
		return cfg, errors.New("config: database.max_conns must be positive")
	}
	if cfg.Database.AcquireTimeout <= 0 {
		return cfg, errors.New("config: database.acquire_timeout must be positive")
	}
	if _, err := billingapp.ParseMonthlyPolicy(cfg.Billing.MonthlyPolicy); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
