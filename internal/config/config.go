// Package config holds boardpilot's runtime configuration: a YAML file with
// BOARDPILOT_* environment overrides, one block per concern, and defaults
// that work without any file at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Context ContextConfig `yaml:"context"`
	Batch   BatchConfig   `yaml:"batch"`
	API     APIConfig     `yaml:"api"`
}

// LoggingConfig controls log level and encoding.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug/info/warn/error
	JSON  bool   `yaml:"json"`
}

// OracleConfig controls the language-oracle client.
type OracleConfig struct {
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"` // hard wall-clock timeout per call
	MaxRetries     int     `yaml:"max_retries"`
}

// Timeout returns the per-call wall-clock timeout.
func (o OracleConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// ContextConfig controls snapshot caching.
type ContextConfig struct {
	BoardTTLMinutes      int `yaml:"board_ttl_minutes"`
	UserTTLMinutes       int `yaml:"user_ttl_minutes"`
	PermissionTTLMinutes int `yaml:"permission_ttl_minutes"`
	CacheSize            int `yaml:"cache_size"`
}

// BatchConfig controls batch-window execution.
type BatchConfig struct {
	WindowSize       int `yaml:"window_size"`
	AssignWindowSize int `yaml:"assign_window_size"`
	PacingMillis     int `yaml:"pacing_millis"`
}

// APIConfig points at the upstream project-management API.
type APIConfig struct {
	Endpoint string `yaml:"endpoint"`
	TokenEnv string `yaml:"token_env"` // env var holding the API token
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Oracle: OracleConfig{
			Model:          "gemini-2.0-flash",
			Temperature:    0.1,
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		Context: ContextConfig{
			BoardTTLMinutes:      10,
			UserTTLMinutes:       30,
			PermissionTTLMinutes: 5,
			CacheSize:            128,
		},
		Batch: BatchConfig{
			WindowSize:       25,
			AssignWindowSize: 10,
			PacingMillis:     200,
		},
		API: APIConfig{
			Endpoint: "https://api.monday.com/v2",
			TokenEnv: "BOARDPILOT_API_TOKEN",
		},
	}
}

// Load reads the config file at path (optional) and applies environment
// overrides on top of defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployments tweak settings without a file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOARDPILOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BOARDPILOT_ORACLE_MODEL"); v != "" {
		cfg.Oracle.Model = v
	}
	if v := os.Getenv("BOARDPILOT_ORACLE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Oracle.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("BOARDPILOT_API_ENDPOINT"); v != "" {
		cfg.API.Endpoint = v
	}
	if v := os.Getenv("BOARDPILOT_BATCH_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Batch.WindowSize = n
		}
	}
}

func (c Config) validate() error {
	if c.Oracle.MaxRetries < 1 {
		return fmt.Errorf("oracle.max_retries must be >= 1, got %d", c.Oracle.MaxRetries)
	}
	if c.Oracle.TimeoutSeconds < 1 {
		return fmt.Errorf("oracle.timeout_seconds must be >= 1, got %d", c.Oracle.TimeoutSeconds)
	}
	if c.Batch.WindowSize < 1 || c.Batch.AssignWindowSize < 1 {
		return fmt.Errorf("batch window sizes must be >= 1")
	}
	return nil
}
