package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
//
// Values are read from a YAML file first and then overridden by environment
// variables (see the env tags), which is how deployments usually configure
// the service.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen" env:"LISTEN"`

	// HTTPPort, when set, overrides the port of Listen.
	HTTPPort string `yaml:"-" json:"-" env:"HTTP_PORT"`

	// SourceBaseURL is the public API root of the entry system.
	SourceBaseURL string `yaml:"source_base_url" json:"source_base_url" env:"SOURCE_BASE_URL"`

	// EventURLBase is prefixed to event IDs to build the per-event link
	// published in calendar entries.
	EventURLBase string `yaml:"event_url_base" json:"event_url_base" env:"EVENT_URL_BASE"`

	// Refresh is a cron-style schedule (e.g. "@every 1h", "0 * * * *")
	// driving the background cache refresh.
	Refresh string `yaml:"refresh" json:"refresh" env:"REFRESH_SCHEDULE"`

	// FetchInterval, if set, replaces Refresh with "@every <interval>".
	FetchInterval time.Duration `yaml:"fetch_interval" json:"fetch_interval" env:"FETCH_INTERVAL"`

	// FetchTimeout bounds every single upstream HTTP request.
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout" env:"FETCH_TIMEOUT"`

	// Timezone is the IANA zone used to decide which events are in the past
	// and published as the calendar's X-WR-TIMEZONE.
	Timezone string `yaml:"timezone" json:"timezone" env:"TIMEZONE"`

	// CalendarName is the display name of the generated ICS feed.
	CalendarName string `yaml:"calendar_name" json:"calendar_name" env:"CALENDAR_NAME"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL"`

	// AllowedOrigins lists CORS origins allowed to call the API.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`

	// RegionsPath optionally points at a regions YAML file replacing the
	// built-in region configuration.
	RegionsPath string `yaml:"regions_path,omitempty" json:"regions_path,omitempty" env:"REGIONS_PATH"`
}

const (
	defaultListen        = "127.0.0.1:8080"
	defaultSourceBaseURL = "https://enter.robocupjunior.org.au/api/v1/public"
	defaultEventURLBase  = "https://enter.robocupjunior.org.au/events"
	defaultRefresh       = "@every 1h"
	defaultFetchTimeout  = 15 * time.Second
	defaultTimezone      = "Australia/Melbourne"
	defaultCalendarName  = "RoboCup Junior Australia: Calendar"
	defaultLogLevel      = "info"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		SourceBaseURL:  defaultSourceBaseURL,
		EventURLBase:   defaultEventURLBase,
		Refresh:        defaultRefresh,
		FetchTimeout:   defaultFetchTimeout,
		Timezone:       defaultTimezone,
		CalendarName:   defaultCalendarName,
		LogLevel:       defaultLogLevel,
		AllowedOrigins: []string{"*"},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.HTTPPort != "" {
		host := c.Listen
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		c.Listen = host + ":" + c.HTTPPort
		c.HTTPPort = ""
	}
	if c.SourceBaseURL == "" {
		c.SourceBaseURL = defaultSourceBaseURL
	}
	c.SourceBaseURL = strings.TrimRight(c.SourceBaseURL, "/")
	if c.EventURLBase == "" {
		c.EventURLBase = defaultEventURLBase
	}
	c.EventURLBase = strings.TrimRight(c.EventURLBase, "/")

	if c.FetchInterval > 0 {
		c.Refresh = "@every " + c.FetchInterval.String()
	}
	if c.Refresh == "" {
		c.Refresh = defaultRefresh
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.CalendarName == "" {
		c.CalendarName = defaultCalendarName
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = []string{"*"}
	}
}

// Location resolves Timezone, falling back to UTC when the zone database
// does not know it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads configuration from the given YAML path and applies
// environment overrides.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - continue with the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - Environment variables override file values.
//   - Normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("config timezone %q: %w", cfg.Timezone, err)
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return nil, fmt.Errorf("write default config: %w", err)
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, ".rcjcal-config-*.tmp")
}

func writeFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
