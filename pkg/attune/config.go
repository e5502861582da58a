package attune

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kairosvoice/attune/pkg/detect"
)

type Config struct {
	Environment         string           `mapstructure:"environment"`
	LogLevel            string           `mapstructure:"log_level"`
	ConfidenceThreshold float64          `mapstructure:"confidence_threshold"`
	MinUtteranceLen     int              `mapstructure:"min_utterance_len"`
	Classifier          ClassifierConfig `mapstructure:"classifier"`
	Detection           DetectionConfig  `mapstructure:"detection"`
	Store               StoreConfig      `mapstructure:"store"`
	Feed                FeedConfig       `mapstructure:"feed"`
	Privacy             PrivacyConfig    `mapstructure:"privacy"`
	Personas            PersonasConfig   `mapstructure:"personas"`
}

type ClassifierConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type DetectionConfig struct {
	MaxCalls                   int `mapstructure:"max_calls"`
	WindowSeconds              int `mapstructure:"window_seconds"`
	CacheTTLSeconds            int `mapstructure:"cache_ttl_seconds"`
	MinAnalysisIntervalSeconds int `mapstructure:"min_analysis_interval_seconds"`
	RemoteTimeoutSeconds       int `mapstructure:"remote_timeout_seconds"`
}

// DetectorConfig converts the wire units into detector durations.
func (d DetectionConfig) DetectorConfig() detect.Config {
	return detect.Config{
		MaxCalls:            d.MaxCalls,
		Window:              time.Duration(d.WindowSeconds) * time.Second,
		CacheTTL:            time.Duration(d.CacheTTLSeconds) * time.Second,
		MinAnalysisInterval: time.Duration(d.MinAnalysisIntervalSeconds) * time.Second,
		RemoteTimeout:       time.Duration(d.RemoteTimeoutSeconds) * time.Second,
	}
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type FeedConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type PersonasConfig struct {
	// Overrides maps persona -> label -> template text, merged over the
	// built-in tables.
	Overrides map[string]map[string]string `mapstructure:"overrides"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("confidence_threshold", 0.6)
	v.SetDefault("min_utterance_len", 3)
	v.SetDefault("classifier.provider", "gemini")
	v.SetDefault("detection.max_calls", 10)
	v.SetDefault("detection.window_seconds", 60)
	v.SetDefault("detection.cache_ttl_seconds", 30)
	v.SetDefault("detection.min_analysis_interval_seconds", 5)
	v.SetDefault("detection.remote_timeout_seconds", 10)
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "attune.db")
	v.SetDefault("feed.enabled", false)
	v.SetDefault("feed.addr", ":8090")
	v.SetDefault("feed.path", "/ws")
	v.SetDefault("privacy.redact_pii", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Classifier.Provider) == "" {
		return fmt.Errorf("classifier.provider is required")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0, 1]: %v", c.ConfidenceThreshold)
	}
	if c.Detection.MaxCalls < 0 ||
		c.Detection.WindowSeconds < 0 ||
		c.Detection.CacheTTLSeconds < 0 ||
		c.Detection.MinAnalysisIntervalSeconds < 0 ||
		c.Detection.RemoteTimeoutSeconds < 0 {
		return fmt.Errorf("detection values must not be negative")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	cfg.Store.Path = os.ExpandEnv(cfg.Store.Path)
	cfg.Feed.Addr = os.ExpandEnv(cfg.Feed.Addr)
	cfg.Classifier.Settings = expandSettings(cfg.Classifier.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		if s, ok := v.(string); ok {
			settings[k] = os.ExpandEnv(s)
		}
	}
	return settings
}
