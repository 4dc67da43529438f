// Package config defines the service configuration and its loading rules.
// Precedence is command-line flags > environment variables > config file >
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/galafis/Anomaly-Detection-System/internal/database"
)

// Config is the root configuration for the anomaly detection service.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database database.Config `yaml:"database"`
	Detector DetectorConfig  `yaml:"detector"`
	Alerting AlertingConfig  `yaml:"alerting"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DetectorConfig holds the detection engine settings.
type DetectorConfig struct {
	// FeatureCount is the fixed dimensionality D of every feature vector.
	FeatureCount int `yaml:"feature_count"`

	// RandomSeed seeds model training and the synthetic bootstrap.
	RandomSeed int64 `yaml:"random_seed"`

	// Isolation forest parameters.
	Trees         int     `yaml:"trees"`
	SampleSize    int     `yaml:"sample_size"`
	Contamination float64 `yaml:"contamination"`

	// One-class SVM parameters. Gamma 0 means auto-scaled from the
	// training variance.
	Nu    float64 `yaml:"nu"`
	Gamma float64 `yaml:"gamma"`

	// EnsembleIncludeStatistical adds the stateless z-score method to the
	// ensemble vote. Off by default: it carries no trained state and fires
	// independently of the trained models.
	EnsembleIncludeStatistical bool `yaml:"ensemble_include_statistical"`

	// ModelsDir is where trained model artifacts are persisted.
	ModelsDir string `yaml:"models_dir"`

	// BootstrapSamples is the number of synthetic vectors generated when
	// no persisted model set can be loaded at startup.
	BootstrapSamples int `yaml:"bootstrap_samples"`

	// RetrainSchedule is an optional cron expression for periodic
	// retraining. Empty disables the scheduler.
	RetrainSchedule string `yaml:"retrain_schedule"`
}

// AlertingConfig holds alert dispatch settings.
type AlertingConfig struct {
	// WebhookURL receives a JSON payload for HIGH and CRITICAL results.
	// Empty falls back to the log dispatcher.
	WebhookURL string `yaml:"webhook_url"`

	// MaxPerMinute throttles outbound notifications.
	MaxPerMinute int `yaml:"max_per_minute"`

	// Timeout bounds a single webhook delivery.
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: database.DefaultConfig(),
		Detector: DetectorConfig{
			FeatureCount:     1000,
			RandomSeed:       42,
			Trees:            100,
			SampleSize:       256,
			Contamination:    0.1,
			Nu:               0.1,
			ModelsDir:        "models",
			BootstrapSamples: 1000,
		},
		Alerting: AlertingConfig{
			MaxPerMinute: 60,
			Timeout:      10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from the given file path, applying it on top of
// the defaults. An empty path returns the defaults with environment
// overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := ValidatePath(path); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidatePath checks that a config path has a supported extension.
func ValidatePath(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return nil
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml)", path)
	}
}

// applyEnv overrides configuration fields from environment variables.
func (c *Config) applyEnv() {
	setString(&c.Server.Host, "SERVER_HOST")
	setInt(&c.Server.Port, "SERVER_PORT")

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.Username, "DB_USERNAME")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Database, "DB_DATABASE")
	setString(&c.Database.SSLMode, "DB_SSL_MODE")

	setInt(&c.Detector.FeatureCount, "DETECTOR_FEATURE_COUNT")
	setString(&c.Detector.ModelsDir, "DETECTOR_MODELS_DIR")
	setString(&c.Detector.RetrainSchedule, "DETECTOR_RETRAIN_SCHEDULE")

	setString(&c.Alerting.WebhookURL, "ALERT_WEBHOOK_URL")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Detector.FeatureCount <= 0 {
		return fmt.Errorf("detector.feature_count must be positive, got %d", c.Detector.FeatureCount)
	}
	if c.Detector.Contamination <= 0 || c.Detector.Contamination >= 1 {
		return fmt.Errorf("detector.contamination must be in (0, 1), got %v", c.Detector.Contamination)
	}
	if c.Detector.Nu <= 0 || c.Detector.Nu >= 1 {
		return fmt.Errorf("detector.nu must be in (0, 1), got %v", c.Detector.Nu)
	}
	if c.Detector.Trees <= 0 {
		return fmt.Errorf("detector.trees must be positive, got %d", c.Detector.Trees)
	}
	if c.Detector.BootstrapSamples <= 0 {
		return fmt.Errorf("detector.bootstrap_samples must be positive, got %d", c.Detector.BootstrapSamples)
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return nil
}

// WriteExample writes the default configuration as a commented YAML file.
func (c *Config) WriteExample(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
