package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Strapi        StrapiConfig        `mapstructure:"strapi" validate:"required"`
	Session       SessionConfig       `mapstructure:"session"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// StrapiConfig points the gateway at the remote Strapi instance that owns
// all CRM data and the users-permissions identity plugin.
type StrapiConfig struct {
	BaseURL          string        `mapstructure:"base_url" validate:"required,url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	AdminIdentifiers []string      `mapstructure:"admin_identifiers"`
}

type SessionConfig struct {
	StorePath         string        `mapstructure:"store_path"`
	RefreshThreshold  time.Duration `mapstructure:"refresh_threshold"`
	MonitorInterval   time.Duration `mapstructure:"monitor_interval"`
	RefreshThrottle   time.Duration `mapstructure:"refresh_throttle"`
	ProtectedPrefixes []string      `mapstructure:"protected_prefixes"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a config purely from environment variables, for
// containerized deployments without a config file. STRAPI_URL falls back to
// NEXT_PUBLIC_STRAPI_URL so the gateway can share the front end's env.
func LoadConfigFromEnv() *Config {
	strapiURL := getEnv("STRAPI_URL", getEnv("NEXT_PUBLIC_STRAPI_URL", "http://localhost:1337"))

	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", ""),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		Strapi: StrapiConfig{
			BaseURL:          strapiURL,
			RequestTimeout:   15 * time.Second,
			AdminIdentifiers: splitNonEmpty(getEnv("ADMIN_IDENTIFIERS", "admin@winston.edu")),
		},
		Session: SessionConfig{
			StorePath:         getEnv("SESSION_STORE_PATH", "crm-session.db"),
			RefreshThreshold:  15 * time.Minute,
			MonitorInterval:   5 * time.Minute,
			RefreshThrottle:   30 * time.Second,
			ProtectedPrefixes: splitNonEmpty(getEnv("PROTECTED_PREFIXES", "/api/crm")),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
			Logging: LoggingConfig{Level: getEnv("LOG_LEVEL", "info"), Format: getEnv("LOG_FORMAT", "json")},
		},
	}

	return cfg
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Strapi.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("strapi config: %v", err))
	}

	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("session config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *StrapiConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %s: %w", c.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https, got %q", parsed.Scheme)
	}
	return nil
}

func (c *SessionConfig) Validate() error {
	if c.RefreshThreshold < 0 || c.MonitorInterval < 0 || c.RefreshThrottle < 0 {
		return errors.New("session durations must not be negative")
	}
	if c.MonitorInterval > 0 && c.RefreshThreshold > 0 && c.MonitorInterval > c.RefreshThreshold {
		return errors.New("monitor_interval should not exceed refresh_threshold")
	}
	return nil
}

// ApplyDefaults fills zero-valued session tuning knobs with the product
// defaults: 15m refresh threshold, 5m monitor ticks, 30s refresh throttle.
func (c *SessionConfig) ApplyDefaults() {
	if c.RefreshThreshold == 0 {
		c.RefreshThreshold = 15 * time.Minute
	}
	if c.MonitorInterval == 0 {
		c.MonitorInterval = 5 * time.Minute
	}
	if c.RefreshThrottle == 0 {
		c.RefreshThrottle = 30 * time.Second
	}
	if c.StorePath == "" {
		c.StorePath = "crm-session.db"
	}
	if len(c.ProtectedPrefixes) == 0 {
		c.ProtectedPrefixes = []string{"/api/crm"}
	}
}
