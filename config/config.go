package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Strike window bounds accepted by the analyzer
const (
	MinHalfWindow = 3
	MaxHalfWindow = 20
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PREMIUM_SCANNER_"

// Config holds application configuration
type Config struct {
	Relay      RelayConfig      `json:"relay"`
	MarketData MarketDataConfig `json:"market_data"`
	Analysis   AnalysisConfig   `json:"analysis"`
	Processing ProcessingConfig `json:"processing"`
	Output     OutputConfig     `json:"output"`
	Server     ServerConfig     `json:"server"`
}

// RelayConfig holds configuration for the relay fetcher
type RelayConfig struct {
	RequestTimeout    time.Duration `json:"request_timeout"`
	MaxRetries        int           `json:"max_retries"`
	Backoff           time.Duration `json:"backoff"`
	MinBodyBytes      int           `json:"min_body_bytes"`
	DirectOnly        bool          `json:"direct_only"`
	RequestsPerSecond int           `json:"requests_per_second"`
	UserAgent         string        `json:"user_agent"`
}

// MarketDataConfig holds the upstream feed endpoints
type MarketDataConfig struct {
	ChartBaseURL   string `json:"chart_base_url"`
	OptionsBaseURL string `json:"options_base_url"`
}

// AnalysisConfig holds defaults for the option analyzer
type AnalysisConfig struct {
	HalfWindow int `json:"half_window"`
}

// ProcessingConfig holds configuration for processing
type ProcessingConfig struct {
	MaxWorkers int           `json:"max_workers"`
	RunTimeout time.Duration `json:"run_timeout"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	ShowColors   bool `json:"show_colors"`
	ShowProgress bool `json:"show_progress"`
	MaxResults   int  `json:"max_results"`
	JSON         bool `json:"json"`
}

// ServerConfig holds configuration for the HTTP API
type ServerConfig struct {
	Addr string `json:"addr"`
}

// NewDefaultConfig creates a new configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Relay: RelayConfig{
			RequestTimeout:    12 * time.Second,
			MaxRetries:        3,
			Backoff:           1500 * time.Millisecond,
			MinBodyBytes:      30,
			DirectOnly:        false,
			RequestsPerSecond: 4,
			UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		},
		MarketData: MarketDataConfig{
			ChartBaseURL:   "https://query1.finance.yahoo.com/v8/finance/chart",
			OptionsBaseURL: "https://query2.finance.yahoo.com/v7/finance/options",
		},
		Analysis: AnalysisConfig{
			HalfWindow: 8,
		},
		Processing: ProcessingConfig{
			MaxWorkers: 4,
			RunTimeout: 3 * time.Minute,
		},
		Output: OutputConfig{
			ShowColors:   true,
			ShowProgress: true,
			MaxResults:   0, // 0 means no limit
		},
	}
}

// GetTestConfig returns a configuration optimized for testing
func GetTestConfig() *Config {
	config := NewDefaultConfig()

	// Modify for testing
	config.Relay.RequestTimeout = 2 * time.Second
	config.Relay.Backoff = time.Millisecond
	config.Relay.RequestsPerSecond = 0
	config.Processing.MaxWorkers = 2
	config.Output.ShowColors = false
	config.Output.ShowProgress = false

	return config
}

// LoadEnv reads .env style files into the process environment and applies
// PREMIUM_SCANNER_* overrides. Missing files are ignored.
func (c *Config) LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return c.applyEnv()
}

func (c *Config) applyEnv() error {
	var firstErr error
	record := func(key string, err error) {
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		}
	}

	if v, ok := lookup("REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		record("REQUEST_TIMEOUT", err)
		if err == nil {
			c.Relay.RequestTimeout = d
		}
	}
	if v, ok := lookup("MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		record("MAX_RETRIES", err)
		if err == nil {
			c.Relay.MaxRetries = n
		}
	}
	if v, ok := lookup("BACKOFF"); ok {
		d, err := time.ParseDuration(v)
		record("BACKOFF", err)
		if err == nil {
			c.Relay.Backoff = d
		}
	}
	if v, ok := lookup("DIRECT_ONLY"); ok {
		b, err := strconv.ParseBool(v)
		record("DIRECT_ONLY", err)
		if err == nil {
			c.Relay.DirectOnly = b
		}
	}
	if v, ok := lookup("REQUESTS_PER_SECOND"); ok {
		n, err := strconv.Atoi(v)
		record("REQUESTS_PER_SECOND", err)
		if err == nil {
			c.Relay.RequestsPerSecond = n
		}
	}
	if v, ok := lookup("USER_AGENT"); ok {
		c.Relay.UserAgent = v
	}
	if v, ok := lookup("CHART_BASE_URL"); ok {
		c.MarketData.ChartBaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := lookup("OPTIONS_BASE_URL"); ok {
		c.MarketData.OptionsBaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := lookup("HALF_WINDOW"); ok {
		n, err := strconv.Atoi(v)
		record("HALF_WINDOW", err)
		if err == nil {
			c.Analysis.HalfWindow = n
		}
	}
	if v, ok := lookup("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		record("WORKERS", err)
		if err == nil {
			c.Processing.MaxWorkers = n
		}
	}
	if v, ok := lookup("ADDR"); ok {
		c.Server.Addr = v
	}

	return firstErr
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Relay.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	if c.Relay.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive")
	}

	if c.Relay.Backoff < 0 {
		return fmt.Errorf("backoff cannot be negative")
	}

	if c.Relay.MinBodyBytes < 0 {
		return fmt.Errorf("min body bytes cannot be negative")
	}

	if c.Relay.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}

	if c.MarketData.ChartBaseURL == "" || c.MarketData.OptionsBaseURL == "" {
		return fmt.Errorf("market data base URLs must be set")
	}

	// Clamp rather than reject, the caller constrains the window anyway
	c.Analysis.HalfWindow = ClampHalfWindow(c.Analysis.HalfWindow)

	if c.Processing.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive")
	}

	if c.Processing.RunTimeout <= 0 {
		return fmt.Errorf("run timeout must be positive")
	}

	if c.Output.MaxResults < 0 {
		return fmt.Errorf("max results cannot be negative")
	}

	return nil
}

// ClampHalfWindow clamps a strike window size to [MinHalfWindow, MaxHalfWindow]
func ClampHalfWindow(n int) int {
	if n < MinHalfWindow {
		return MinHalfWindow
	}
	if n > MaxHalfWindow {
		return MaxHalfWindow
	}
	return n
}
