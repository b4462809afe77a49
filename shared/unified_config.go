package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSourceURL is the upstream GMP extractor endpoint
const DefaultSourceURL = "https://gmp-extractor.khatriutsav63.workers.dev/"

// UnifiedConfiguration holds all configuration parameters for the entire application
type UnifiedConfiguration struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Service ServiceConfig `json:"service" yaml:"service"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ServerConfig holds the HTTP API configuration
type ServerConfig struct {
	Port string `json:"port" yaml:"port"`
}

// ServiceConfig holds upstream HTTP configuration
type ServiceConfig struct {
	BaseURL            string        `json:"base_url" yaml:"base_url"`
	HTTPRequestTimeout time.Duration `json:"http_timeout" yaml:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit" yaml:"rate_limit"`
	MaxRetryAttempts   int           `json:"max_retries" yaml:"max_retries"`
	RetryBackoff       time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
	UserAgent          string        `json:"user_agent" yaml:"user_agent"`
	EnableMetrics      bool          `json:"enable_metrics" yaml:"enable_metrics"`
}

// CacheConfig holds snapshot cache configuration
type CacheConfig struct {
	SnapshotTTL time.Duration `json:"snapshot_ttl" yaml:"snapshot_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	Format      string `json:"format" yaml:"format"`
	ServiceName string `json:"service_name" yaml:"service_name"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Server: ServerConfig{
			Port: "8080",
		},
		Service: NewGMPServiceConfig(),
		Cache: CacheConfig{
			SnapshotTTL: 2 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "gmp-tracker",
		},
	}
}

// NewGMPServiceConfig returns the upstream GMP source configuration
func NewGMPServiceConfig() ServiceConfig {
	return ServiceConfig{
		BaseURL:            DefaultSourceURL,
		HTTPRequestTimeout: 30 * time.Second,
		RequestRateLimit:   1 * time.Second,
		MaxRetryAttempts:   2,
		RetryBackoff:       1 * time.Second,
		EnableMetrics:      true,
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	if c.Server.Port == "" {
		c.Server.Port = defaults.Server.Port
		logger.Debug("Applied default Server.Port")
	}

	if c.Service.BaseURL == "" {
		c.Service.BaseURL = defaults.Service.BaseURL
		logger.Debug("Applied default Service.BaseURL")
	}

	if c.Service.HTTPRequestTimeout <= 0 {
		c.Service.HTTPRequestTimeout = defaults.Service.HTTPRequestTimeout
		logger.Debug("Applied default Service.HTTPRequestTimeout")
	}

	if c.Service.RequestRateLimit < 0 {
		c.Service.RequestRateLimit = 0
		logger.Debug("Clamped Service.RequestRateLimit to zero")
	}

	if c.Service.MaxRetryAttempts < 0 {
		c.Service.MaxRetryAttempts = 0
		logger.Debug("Clamped Service.MaxRetryAttempts to zero")
	}

	if c.Service.RetryBackoff <= 0 {
		c.Service.RetryBackoff = defaults.Service.RetryBackoff
		logger.Debug("Applied default Service.RetryBackoff")
	}

	if c.Cache.SnapshotTTL <= 0 {
		c.Cache.SnapshotTTL = defaults.Cache.SnapshotTTL
		logger.Debug("Applied default Cache.SnapshotTTL")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		logger.Debug("Applied default Logging.Level")
	}

	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
		logger.Debug("Applied default Logging.Format")
	}

	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = defaults.Logging.ServiceName
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// ToJSON serializes the configuration to JSON
func (c *UnifiedConfiguration) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ConfigureLogging applies the logging section to the global logrus logger
func ConfigureLogging(cfg LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("Invalid log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	logrus.WithFields(logrus.Fields{
		"service_name": cfg.ServiceName,
		"level":        level.String(),
		"format":       cfg.Format,
	}).Debug("Logging configured")
}

// Describe returns a one-line summary used in startup logs
func (c *UnifiedConfiguration) Describe() string {
	return fmt.Sprintf("source=%s ttl=%v timeout=%v retries=%d",
		c.Service.BaseURL, c.Cache.SnapshotTTL, c.Service.HTTPRequestTimeout, c.Service.MaxRetryAttempts)
}
