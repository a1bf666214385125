package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Registration struct {
		TeamPrefix        string `yaml:"team_prefix"`
		StorageNamespace  string `yaml:"storage_namespace"`
		IdempotencyTTLMin int    `yaml:"idempotency_ttl_minutes"`
	} `yaml:"registration"`

	Storage struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"storage"`

	Notify struct {
		Enabled   bool `yaml:"enabled"`
		Workers   int  `yaml:"workers"`
		QueueSize int  `yaml:"queue_size"`
	} `yaml:"notify"`
}

func (c *Config) idempotencyTTL() time.Duration {
	if c.Registration.IdempotencyTTLMin <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Registration.IdempotencyTTLMin) * time.Minute
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

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Server.Port == "" {
		config.Server.Port = getEnv("PORT", "8080")
	}
	if config.Registration.TeamPrefix == "" {
		config.Registration.TeamPrefix = "CYT"
	}
	if config.Registration.StorageNamespace == "" {
		config.Registration.StorageNamespace = "registrations"
	}
	if config.Notify.Workers <= 0 {
		config.Notify.Workers = 2
	}
	if config.Notify.QueueSize <= 0 {
		config.Notify.QueueSize = 64
	}

	return &config, nil
}
