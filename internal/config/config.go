// Package config loads RoamFree configuration. Values come from defaults,
// then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config is the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	LLM      LLMConfig      `yaml:"llm"`
	Store    StoreConfig    `yaml:"store"`
	Places   PlacesConfig   `yaml:"places"`
	Distance DistanceConfig `yaml:"distance"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	// Addr is the listen address; port 0 picks a random port.
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	OpenBrowser bool     `yaml:"open_browser"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// LLMConfig configures the OpenAI-compatible planning model
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
}

// StoreConfig selects the key/value backend
type StoreConfig struct {
	Driver string `yaml:"driver"`
	// Path is the file or sqlite database path. Empty means ~/.roamfree.
	Path          string `yaml:"path"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// PlacesConfig configures place search
type PlacesConfig struct {
	NominatimURL string `yaml:"nominatim_url"`
	UserAgent    string `yaml:"user_agent"`
}

// DistanceConfig configures the optional walking distance estimate
type DistanceConfig struct {
	Enabled bool   `yaml:"enabled"`
	OSRMURL string `yaml:"osrm_url"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			CORSOrigins: []string{"http://localhost:*", "http://127.0.0.1:*", "wails://*"},
			OpenBrowser: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		LLM: LLMConfig{
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta/openai",
			Model:       "gemini-2.0-flash",
			Timeout:     60 * time.Second,
			Temperature: 0.7,
		},
		Store: StoreConfig{
			Driver: DriverFile,
		},
		Places: PlacesConfig{
			NominatimURL: "https://nominatim.openstreetmap.org",
			UserAgent:    "RoamFree/1.0",
		},
		Distance: DistanceConfig{
			Enabled: true,
			OSRMURL: "https://router.project-osrm.org",
		},
	}
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration. path may be empty, in which case
// ROAMFREE_CONFIG is consulted; without either only defaults and the
// environment apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ROAMFREE_CONFIG")
	}

	cfg := DefaultConfig()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "SERVER_ADDR")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitCSV(v)
	}
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.Path, "STORE_PATH")
	setString(&c.Store.DatabaseURL, "DATABASE_URL")
	setString(&c.Store.RedisAddr, "REDIS_ADDR")
	setString(&c.Store.RedisPassword, "REDIS_PASSWORD")
	setString(&c.Places.NominatimURL, "NOMINATIM_URL")
	setString(&c.Distance.OSRMURL, "OSRM_URL")

	var errs []error
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TIMEOUT: %w", err))
		}
		c.LLM.Timeout = d
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TEMPERATURE: %w", err))
		}
		c.LLM.Temperature = f
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("REDIS_DB: %w", err))
		}
		c.Store.RedisDB = n
	}
	for key, dst := range map[string]*bool{
		"DISTANCE_ENABLED": &c.Distance.Enabled,
		"OPEN_BROWSER":     &c.Server.OpenBrowser,
	} {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
			*dst = b
		}
	}
	return errors.Join(errs...)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverFile, DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url (DATABASE_URL) is required for the postgres driver"))
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr (REDIS_ADDR) is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if c.LLM.BaseURL == "" {
		errs = append(errs, errors.New("llm.base_url is required"))
	} else if c.LLM.APIKey == "" && !isLoopback(c.LLM.BaseURL) {
		errs = append(errs, errors.New("llm.api_key (LLM_API_KEY) is required"))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, errors.New("llm.temperature must be between 0 and 2"))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", l.Level)
	}
	return level, nil
}

// NewLogger builds a logger writing to w
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func isLoopback(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
