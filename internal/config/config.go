package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL            = "https://605c94c36d85de00170da8b4.mockapi.io"
	DefaultLogLevel          = "info"
	DefaultMockAddr          = ":8089"
	DefaultFeatureConfigPath = "./data/stationcal.toml"
)

type Config struct {
	APIURL            string
	LogLevel          string
	LogFile           string
	MockAddr          string
	FeatureConfigPath string
	NoDelay           bool
}

// Load loads configuration from environment variables only.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile loads configuration from an optional .env file and environment variables.
func LoadWithFile(envFile string) (*Config, error) {
	// Attempt to load .env file if provided, but don't fail if it doesn't exist.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		APIURL:            strings.TrimRight(envOrDefault("STATIONCAL_API_URL", DefaultAPIURL), "/"),
		LogLevel:          strings.ToLower(envOrDefault("STATIONCAL_LOG_LEVEL", DefaultLogLevel)),
		LogFile:           os.Getenv("STATIONCAL_LOG_FILE"),
		MockAddr:          envOrDefault("STATIONCAL_MOCK_ADDR", DefaultMockAddr),
		FeatureConfigPath: envOrDefault("STATIONCAL_CONFIG", DefaultFeatureConfigPath),
		NoDelay:           parseBool(os.Getenv("STATIONCAL_NO_DELAY")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the API URL is absolute and the log level is known.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("STATIONCAL_API_URL is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("STATIONCAL_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("STATIONCAL_LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	if c.MockAddr == "" {
		return fmt.Errorf("STATIONCAL_MOCK_ADDR is required")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// parseBool converts a string to a boolean, defaulting to false.
func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
