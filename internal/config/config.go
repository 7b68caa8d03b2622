// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr     string `yaml:"http_addr"`
	LogLevel     string `yaml:"log_level"`
	DatabaseURL  string `yaml:"database_url"`
	SQLitePath   string `yaml:"sqlite_path"`
	DocumentName string `yaml:"document_name"`
	Jobs         Jobs   `yaml:"jobs"`
}

type Jobs struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxRuntime   time.Duration `yaml:"max_runtime"`
}

func Default() Config {
	return Config{
		HTTPAddr:     ":8082",
		LogLevel:     "info",
		DocumentName: "Untitled",
		Jobs: Jobs{
			PollInterval: 400 * time.Millisecond,
			MaxRuntime:   5 * time.Minute,
		},
	}
}

// Load reads path (when non-empty) over the defaults and then applies the
// process environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

func LoadWithEnv(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = envOr(getenv, "HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = envOr(getenv, "LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = envOr(getenv, "DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = envOr(getenv, "SQLITE_PATH", cfg.SQLitePath)
	cfg.DocumentName = envOr(getenv, "DOCUMENT_NAME", cfg.DocumentName)

	var err error
	if cfg.Jobs.PollInterval, err = durationOr(getenv, "JOB_POLL_INTERVAL", cfg.Jobs.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.Jobs.MaxRuntime, err = durationOr(getenv, "JOB_MAX_RUNTIME", cfg.Jobs.MaxRuntime); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty")
	}
	if c.Jobs.PollInterval <= 0 {
		return fmt.Errorf("jobs.poll_interval must be positive, got %s", c.Jobs.PollInterval)
	}
	if c.Jobs.MaxRuntime <= 0 {
		return fmt.Errorf("jobs.max_runtime must be positive, got %s", c.Jobs.MaxRuntime)
	}
	return nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	v := getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func durationOr(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
