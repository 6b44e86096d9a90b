package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/joho/godotenv"
)

// DefaultURL is the page publishing the official prayer-time tables.
const DefaultURL = "https://www.grandmufti.bg/bg/home/vremena-za-namaz.html"

// Backends and output formats accepted by Validate.
const (
	BackendBrowser = "browser"
	BackendHTTP    = "http"

	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Scraper   ScraperConfig
	Browser   BrowserConfig
	Output    OutputConfig
	Webhook   WebhookConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ScraperConfig controls what is scraped and how the page is driven.
type ScraperConfig struct {
	// URL is the form page holding the city and month selects.
	URL string

	// Year is fixed for the whole run and prefixes every date key.
	Year int // default: 2025

	// Backend selects the page driver: "browser" (rod) or "http" (form posts).
	Backend string // default: "browser"

	CitySelect    string // default: "select[name='town']"
	MonthSelect   string // default: "select[name='month']"
	TableSelector string // default: "table"

	// CityPlaceholders and MonthPlaceholders are the labels of the
	// "choose ..." entries, compared trimmed and lower-cased.
	CityPlaceholders  []string
	MonthPlaceholders []string

	// DayLabels are the accepted headers of the day-number column,
	// tried in order.
	DayLabels []string // default: ["Ден", "Day"]

	// WaitTimeout bounds each wait for the table after a selection.
	WaitTimeout time.Duration // default: 30s

	// NavigationTimeout bounds loading the form page.
	NavigationTimeout time.Duration // default: 30s

	// SelectInterval is the minimum spacing between two selections.
	// Zero disables throttling.
	SelectInterval time.Duration

	// AcceptLanguage is sent with every request.
	AcceptLanguage string

	// SnapshotDir, when set, receives a Markdown copy of every table.
	SnapshotDir string
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is used by both backends when set.
	Proxy string

	// Stealth injects anti-automation-detection scripts.
	Stealth bool // default: false

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockTrackers drops requests to analytics and ad hosts.
	BlockTrackers bool // default: true
}

// OutputConfig controls where the aggregate is written.
type OutputConfig struct {
	Path   string // default: "all_prayer_times_<year>.json"
	Format string // "json", "yaml" or "sqlite"; default: "json"
}

// WebhookConfig controls the completion notification.
type WebhookConfig struct {
	URL    string
	Secret string
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool // default: false
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads a .env file when present, then builds the configuration from
// environment variables with sane defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config: failed to read .env file", "error", err)
	}

	year := envIntOr("PRAYER_YEAR", 2025)

	return &Config{
		Scraper: ScraperConfig{
			URL:               envOr("PRAYER_URL", DefaultURL),
			Year:              year,
			Backend:           envOr("PRAYER_BACKEND", BackendBrowser),
			CitySelect:        envOr("PRAYER_CITY_SELECT", "select[name='town']"),
			MonthSelect:       envOr("PRAYER_MONTH_SELECT", "select[name='month']"),
			TableSelector:     envOr("PRAYER_TABLE_SELECTOR", "table"),
			CityPlaceholders:  envSliceOr("PRAYER_CITY_PLACEHOLDERS", []string{"избери град", "select town"}),
			MonthPlaceholders: envSliceOr("PRAYER_MONTH_PLACEHOLDERS", []string{"избери месец", "select month"}),
			DayLabels:         envSliceOr("PRAYER_DAY_LABELS", []string{"Ден", "Day"}),
			WaitTimeout:       envDurationOr("PRAYER_WAIT_TIMEOUT", 30*time.Second),
			NavigationTimeout: envDurationOr("PRAYER_NAV_TIMEOUT", 30*time.Second),
			SelectInterval:    envDurationOr("PRAYER_SELECT_INTERVAL", 0),
			AcceptLanguage:    envOr("PRAYER_ACCEPT_LANGUAGE", "bg-BG,bg;q=0.9,en;q=0.8"),
			SnapshotDir:       os.Getenv("PRAYER_SNAPSHOT_DIR"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("PRAYER_HEADLESS", true),
			NoSandbox:  envBoolOr("PRAYER_NO_SANDBOX", false),
			BrowserBin: os.Getenv("PRAYER_BROWSER_BIN"),
			Proxy:      os.Getenv("PRAYER_PROXY"),
			Stealth:    envBoolOr("PRAYER_STEALTH", false),
			BlockedResourceTypes: envSliceOr("PRAYER_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			BlockTrackers: envBoolOr("PRAYER_BLOCK_TRACKERS", true),
		},
		Output: OutputConfig{
			Path:   envOr("PRAYER_OUTPUT", DefaultOutputPath(year)),
			Format: envOr("PRAYER_OUTPUT_FORMAT", FormatJSON),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("PRAYER_WEBHOOK_URL"),
			Secret: os.Getenv("PRAYER_WEBHOOK_SECRET"),
		},
		Server: ServerConfig{
			Host: envOr("PRAYER_HOST", "0.0.0.0"),
			Port: envIntOr("PRAYER_PORT", 3000),
			Mode: envOr("PRAYER_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PRAYER_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PRAYER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRAYER_RATE_RPS", 5.0),
			Burst:             envIntOr("PRAYER_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("PRAYER_LOG_LEVEL", "info"),
			Format: envOr("PRAYER_LOG_FORMAT", "json"),
		},
	}
}

// DefaultOutputPath is the output file used when PRAYER_OUTPUT is unset.
func DefaultOutputPath(year int) string {
	return fmt.Sprintf("all_prayer_times_%d.json", year)
}

// Validate rejects configurations the scraper cannot run with: unknown
// backends or formats and CSS selectors that do not compile.
func (c *Config) Validate() error {
	switch c.Scraper.Backend {
	case BackendBrowser, BackendHTTP:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Scraper.Backend)
	}
	switch c.Output.Format {
	case FormatJSON, FormatYAML, FormatSQLite:
	default:
		return fmt.Errorf("config: unknown output format %q", c.Output.Format)
	}
	if c.Scraper.URL == "" {
		return errors.New("config: PRAYER_URL is empty")
	}
	if len(c.Scraper.DayLabels) == 0 {
		return errors.New("config: PRAYER_DAY_LABELS is empty")
	}
	for name, sel := range map[string]string{
		"PRAYER_CITY_SELECT":    c.Scraper.CitySelect,
		"PRAYER_MONTH_SELECT":   c.Scraper.MonthSelect,
		"PRAYER_TABLE_SELECTOR": c.Scraper.TableSelector,
	} {
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("config: %s %q: %w", name, sel, err)
		}
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
