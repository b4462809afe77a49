package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fenilmodi00/gmp-tracker/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort     string
	SourceURL      string
	SnapshotTTL    string
	HTTPTimeout    string
	MaxRetries     string
	RateLimit      string
	EnableMetrics  string
	LogLevel       string
	LogFormat      string
	ConfigFilePath string
}

// LoadConfig reads .env (if present) and the process environment
func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Debug("No .env file loaded, using system environment variables")
	}

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", ""),
		SourceURL:      getEnv("GMP_SOURCE_URL", ""),
		SnapshotTTL:    getEnv("SNAPSHOT_TTL", ""),
		HTTPTimeout:    getEnv("HTTP_TIMEOUT", ""),
		MaxRetries:     getEnv("MAX_RETRIES", ""),
		RateLimit:      getEnv("RATE_LIMIT", ""),
		EnableMetrics:  getEnv("ENABLE_METRICS", ""),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		LogFormat:      getEnv("LOG_FORMAT", ""),
		ConfigFilePath: getEnv("CONFIG_FILE", ""),
	}
}

// LoadFile decodes a YAML configuration file after expanding ${VAR} references
func LoadFile(path string) (*shared.UnifiedConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := shared.NewDefaultUnifiedConfiguration()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return cfg, nil
}

// ToUnified builds the application configuration. Values from the YAML file (if any)
// are applied first; environment variables that are set win over the file.
func (c *Config) ToUnified() (*shared.UnifiedConfiguration, error) {
	unified := shared.NewDefaultUnifiedConfiguration()

	if c.ConfigFilePath != "" {
		fromFile, err := LoadFile(c.ConfigFilePath)
		if err != nil {
			return nil, err
		}
		unified = fromFile
	}

	if c.ServerPort != "" {
		unified.Server.Port = c.ServerPort
	}
	if c.SourceURL != "" {
		unified.Service.BaseURL = c.SourceURL
	}
	if c.LogLevel != "" {
		unified.Logging.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		unified.Logging.Format = c.LogFormat
	}

	if c.SnapshotTTL != "" {
		unified.Cache.SnapshotTTL = parseDuration("SNAPSHOT_TTL", c.SnapshotTTL, unified.Cache.SnapshotTTL)
	}
	if c.HTTPTimeout != "" {
		unified.Service.HTTPRequestTimeout = parseDuration("HTTP_TIMEOUT", c.HTTPTimeout, unified.Service.HTTPRequestTimeout)
	}
	if c.RateLimit != "" {
		unified.Service.RequestRateLimit = parseDuration("RATE_LIMIT", c.RateLimit, unified.Service.RequestRateLimit)
	}
	if c.MaxRetries != "" {
		retries, err := strconv.Atoi(c.MaxRetries)
		if err != nil {
			logrus.Warnf("Invalid MAX_RETRIES value: %s, keeping %d", c.MaxRetries, unified.Service.MaxRetryAttempts)
		} else {
			unified.Service.MaxRetryAttempts = retries
		}
	}

	if c.EnableMetrics != "" {
		enabled, err := strconv.ParseBool(c.EnableMetrics)
		if err != nil {
			logrus.Warnf("Invalid ENABLE_METRICS value: %s, keeping %t", c.EnableMetrics, unified.Service.EnableMetrics)
		} else {
			unified.Service.EnableMetrics = enabled
		}
	}

	unified.ValidateAndApplyDefaults()
	return unified, nil
}

func parseDuration(key, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logrus.Warnf("Invalid %s value: %s, using %v", key, value, fallback)
		return fallback
	}
	return d
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
