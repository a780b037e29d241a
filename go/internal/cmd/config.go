package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from config.yaml and
// overridable with environment variables for anything deploy-specific.
type Config struct {
	Port string `yaml:"port"`

	Auth struct {
		Secret   string        `yaml:"secret"`
		TokenTTL time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`

	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`

	Outbox struct {
		PollInterval time.Duration `yaml:"poll_interval"`
		BatchSize    int           `yaml:"batch_size"`
	} `yaml:"outbox"`

	Scheduler struct {
		BatchSize int32 `yaml:"batch_size"`
	} `yaml:"scheduler"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	MigrationsPath string `yaml:"migrations_path"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the yaml file when present, then applies defaults and
// environment overrides.
func loadConfig(path string) (*Config, error) {
	var config Config

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if config.Port == "" {
		config.Port = getEnv("PORT", "8080")
	}
	if config.Auth.Secret == "" {
		config.Auth.Secret = os.Getenv("JWT_SECRET")
	}
	if config.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret is required (config auth.secret or JWT_SECRET)")
	}
	if config.Auth.TokenTTL == 0 {
		config.Auth.TokenTTL = 24 * time.Hour
	}
	if config.NATS.URL == "" {
		config.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	}
	if config.Outbox.PollInterval == 0 {
		config.Outbox.PollInterval = time.Second
	}
	if config.Outbox.BatchSize == 0 {
		config.Outbox.BatchSize = getEnvAsInt("OUTBOX_BATCH_SIZE", 100)
	}
	if config.Scheduler.BatchSize == 0 {
		config.Scheduler.BatchSize = 50
	}
	if config.MigrationsPath == "" {
		config.MigrationsPath = getEnv("MIGRATIONS_PATH", "migrations")
	}

	return &config, nil
}
