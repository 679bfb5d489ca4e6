// ABOUTME: Runtime configuration for the calendar importer
// ABOUTME: Merges defaults, optional YAML file, .env and environment variables; CALENDAR_ID is required
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName names the XDG subdirectories used for config and token storage.
	AppName = "calimport"

	DefaultTimeZone     = "America/New_York"
	DefaultCSVPath      = "calendar_events.csv"
	DefaultClientSecret = "credentials.json"
	DefaultCallbackPort = 8080
	DefaultAuthTimeout  = 5 * time.Minute
	DefaultRateLimit    = 5.0
)

// Config holds everything a run needs. It is built once by Load and handed to each component.
type Config struct {
	CalendarID       string        `yaml:"-"`
	TimeZone         string        `yaml:"timezone"`
	CSVPath          string        `yaml:"csv"`
	ClientSecretPath string        `yaml:"client_secret"`
	TokenPath        string        `yaml:"token"`
	CallbackPort     int           `yaml:"callback_port"`
	AuthTimeout      time.Duration `yaml:"auth_timeout"`
	RateLimit        float64       `yaml:"rate_limit"`
	Debug            bool          `yaml:"debug"`

	// Fallback OAuth app credentials when no client secret file is present.
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`

	Location *time.Location `yaml:"-"`
}

// ConfigError reports a missing or invalid configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Key, e.Reason)
}

// LoadOptions controls where Load looks for optional inputs.
type LoadOptions struct {
	// EnvFile is an explicit .env path. When empty the nearest .env walking up from the
	// working directory is used, if any.
	EnvFile string
}

// FilePath returns the XDG location of the optional YAML config file.
func FilePath() string {
	if p := os.Getenv("CALIMPORT_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// DefaultTokenPath returns the XDG location of the persisted OAuth token.
func DefaultTokenPath() string {
	return filepath.Join(xdg.DataHome, AppName, "token.json")
}

// Defaults returns a config populated with default values and no calendar ID.
func Defaults() *Config {
	return &Config{
		TimeZone:         DefaultTimeZone,
		CSVPath:          DefaultCSVPath,
		ClientSecretPath: DefaultClientSecret,
		TokenPath:        DefaultTokenPath(),
		CallbackPort:     DefaultCallbackPort,
		AuthTimeout:      DefaultAuthTimeout,
		RateLimit:        DefaultRateLimit,
	}
}

// Load resolves the configuration. It never touches the network.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadDotenv(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := loadFile(cfg, FilePath()); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.CalendarID = strings.TrimSpace(os.Getenv("CALENDAR_ID"))
	if cfg.CalendarID == "" {
		return nil, &ConfigError{Key: "CALENDAR_ID", Reason: "is not set in the environment"}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	// LoadLocation maps "" to UTC and "Local" to the host zone; neither is an IANA name
	// the Calendar API accepts as an event time zone.
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return &ConfigError{Key: "timezone", Reason: fmt.Sprintf("%q is not an IANA zone name", c.TimeZone)}
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return &ConfigError{Key: "timezone", Reason: fmt.Sprintf("%q is not a known zone", c.TimeZone)}
	}
	c.Location = loc

	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		return &ConfigError{Key: "callback_port", Reason: fmt.Sprintf("%d is out of range", c.CallbackPort)}
	}
	if c.AuthTimeout <= 0 {
		return &ConfigError{Key: "auth_timeout", Reason: "must be positive"}
	}
	if c.RateLimit <= 0 {
		return &ConfigError{Key: "rate_limit", Reason: "must be positive"}
	}
	if c.TokenPath == "" {
		c.TokenPath = DefaultTokenPath()
	}
	return nil
}

// loadDotenv loads a .env file without overriding variables already set in the process.
func loadDotenv(path string) error {
	if path == "" {
		path = findDotenv()
		if path == "" {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func findDotenv() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFile overlays the YAML config file onto cfg. A missing file is fine.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &ConfigError{Key: path, Reason: fmt.Sprintf("is not valid YAML: %v", err)}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides:
// - CALIMPORT_CSV
// - CALIMPORT_CLIENT_SECRET
// - CALIMPORT_TOKEN
// - CALIMPORT_TIMEZONE
// - CALIMPORT_CALLBACK_PORT
// - CALIMPORT_AUTH_TIMEOUT
// - CALIMPORT_RATE_LIMIT
// - CALIMPORT_DEBUG
// - GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("CALIMPORT_CSV"); v != "" {
		cfg.CSVPath = v
	}
	if v := os.Getenv("CALIMPORT_CLIENT_SECRET"); v != "" {
		cfg.ClientSecretPath = v
	}
	if v := os.Getenv("CALIMPORT_TOKEN"); v != "" {
		cfg.TokenPath = v
	}
	if v := os.Getenv("CALIMPORT_TIMEZONE"); v != "" {
		cfg.TimeZone = v
	}
	if v := os.Getenv("CALIMPORT_CALLBACK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Key: "CALIMPORT_CALLBACK_PORT", Reason: fmt.Sprintf("%q is not a number", v)}
		}
		cfg.CallbackPort = port
	}
	if v := os.Getenv("CALIMPORT_AUTH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigError{Key: "CALIMPORT_AUTH_TIMEOUT", Reason: fmt.Sprintf("%q is not a duration", v)}
		}
		cfg.AuthTimeout = d
	}
	if v := os.Getenv("CALIMPORT_RATE_LIMIT"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ConfigError{Key: "CALIMPORT_RATE_LIMIT", Reason: fmt.Sprintf("%q is not a number", v)}
		}
		cfg.RateLimit = r
	}
	if v := os.Getenv("CALIMPORT_DEBUG"); v != "" {
		cfg.Debug = v == "true" || v == "1"
	}
	cfg.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	return nil
}
