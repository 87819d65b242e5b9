package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// CalendarConfig holds configuration for Google Calendar integration
type CalendarConfig struct {
	CalendarID         string `toml:"calendar_id"`
	ServiceAccountPath string `toml:"service_account_path"`
}

// FeatureConfig holds user-facing feature configurations.
// These are non-sensitive settings that tune latency, search, export
// and the local mock API. Users can modify these without rebuilding.
// Source: TOML configuration file
type FeatureConfig struct {
	Search   SearchConfig   `toml:"search"`
	API      APIConfig      `toml:"api"`
	Calendar CalendarConfig `toml:"calendar"`
	Mock     MockConfig     `toml:"mock"`
}

type SearchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

type APIConfig struct {
	SearchDelayMS     int     `toml:"search_delay_ms"`
	BookingsDelayMS   int     `toml:"bookings_delay_ms"`
	DetailsDelayMS    int     `toml:"details_delay_ms"`
	UpdateDelayMS     int     `toml:"update_delay_ms"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

type MockConfig struct {
	FixturePath string  `toml:"fixture_path"` // Optional: if not set, uses the built-in fixture
	RateRPS     float64 `toml:"rate_rps"`
	RateBurst   int     `toml:"rate_burst"`
}

// DefaultFeatureConfig returns the settings used when no file is present.
func DefaultFeatureConfig() *FeatureConfig {
	return &FeatureConfig{
		Search: SearchConfig{DebounceMS: 200},
		API: APIConfig{
			SearchDelayMS:   200,
			BookingsDelayMS: 200,
			DetailsDelayMS:  150,
			UpdateDelayMS:   150,
		},
		Mock: MockConfig{RateRPS: 20, RateBurst: 40},
	}
}

// LoadFeatureConfig loads feature configuration from a TOML file.
// Keys absent from the file keep their defaults; a missing file yields the defaults.
func LoadFeatureConfig(path string) (*FeatureConfig, error) {
	cfg := DefaultFeatureConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to load feature config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load feature config: %w", err)
	}
	return cfg, nil
}

// Validate rejects negative durations and rates.
func (c *FeatureConfig) Validate() error {
	if c.Search.DebounceMS < 0 {
		return fmt.Errorf("search.debounce_ms must not be negative")
	}
	for name, v := range map[string]int{
		"api.search_delay_ms":   c.API.SearchDelayMS,
		"api.bookings_delay_ms": c.API.BookingsDelayMS,
		"api.details_delay_ms":  c.API.DetailsDelayMS,
		"api.update_delay_ms":   c.API.UpdateDelayMS,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.API.RequestsPerSecond < 0 || c.Mock.RateRPS < 0 || c.Mock.RateBurst < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	return nil
}

// DebounceDelay is the search quiet period.
func (c *FeatureConfig) DebounceDelay() time.Duration {
	return time.Duration(c.Search.DebounceMS) * time.Millisecond
}

// Delays converts the configured API latencies.
func (c *FeatureConfig) Delays() Delays {
	return Delays{
		Search:   time.Duration(c.API.SearchDelayMS) * time.Millisecond,
		Bookings: time.Duration(c.API.BookingsDelayMS) * time.Millisecond,
		Details:  time.Duration(c.API.DetailsDelayMS) * time.Millisecond,
		Update:   time.Duration(c.API.UpdateDelayMS) * time.Millisecond,
	}
}

// LoadServiceAccountToken reads the service account JSON from the configured path.
// STATIONCAL_SERVICE_ACCOUNT overrides the path from the file.
func (c *CalendarConfig) LoadServiceAccountToken() ([]byte, error) {
	path := c.ServiceAccountPath
	if env := os.Getenv("STATIONCAL_SERVICE_ACCOUNT"); env != "" {
		path = env
	}
	if path == "" {
		return nil, fmt.Errorf("service_account_path is not configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}
	return data, nil
}
