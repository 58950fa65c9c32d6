package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration sourced from env vars and an optional YAML file.
type Config struct {
	Port           string        `yaml:"port"`
	GraphQLHTTPURL string        `yaml:"graphql_http_url"`
	GraphQLWSURL   string        `yaml:"graphql_ws_url"`
	WSProtocol     string        `yaml:"graphql_ws_protocol"`
	RemoteTimeout  time.Duration `yaml:"remote_timeout"`
	SessionSecret  string        `yaml:"session_secret"`
	SessionIssuer  string        `yaml:"session_issuer"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	SecureCookies  bool          `yaml:"secure_cookies"`
	MaxSessions    int           `yaml:"max_sessions"`
	CORSOrigins    []string      `yaml:"cors_allowed_origins"`
}

// Load reads configuration from the environment and performs minimal validation.
// When path is non-empty, values from that YAML file override the environment.
func Load(path string) (Config, error) {
	cfg := Config{
		Port:           fallback(os.Getenv("PORT"), "8080"),
		GraphQLHTTPURL: strings.TrimSpace(os.Getenv("GRAPHQL_HTTP_URL")),
		GraphQLWSURL:   strings.TrimSpace(os.Getenv("GRAPHQL_WS_URL")),
		WSProtocol:     fallback(os.Getenv("GRAPHQL_WS_PROTOCOL"), "graphql-ws"),
		SessionSecret:  strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		SessionIssuer:  fallback(os.Getenv("SESSION_ISSUER"), "userdeck"),
		SecureCookies:  parseBool(os.Getenv("SECURE_COOKIES")),
		CORSOrigins:    parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
	}
	cfg.SessionTTL = minutes(os.Getenv("SESSION_TTL_MINUTES"), 60*time.Minute)
	cfg.RemoteTimeout = seconds(os.Getenv("REMOTE_TIMEOUT_SECONDS"), 10*time.Second)
	cfg.MaxSessions = count(os.Getenv("MAX_SESSIONS"), 1000)

	if path != "" {
		if err := cfg.overlay(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.GraphQLHTTPURL == "" {
		return errors.New("GRAPHQL_HTTP_URL is required")
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.MaxSessions < 0 {
		return errors.New("max sessions must not be negative")
	}
	switch c.WSProtocol {
	case "graphql-ws", "graphql-transport-ws":
	default:
		return fmt.Errorf("GRAPHQL_WS_PROTOCOL %q is not supported", c.WSProtocol)
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	return nil
}

// LiveUpdates reports whether a subscription endpoint is configured.
func (c Config) LiveUpdates() bool {
	return c.GraphQLWSURL != ""
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func minutes(value string, def time.Duration) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	return def
}

func seconds(value string, def time.Duration) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func count(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= 0 {
		return n
	}
	return def
}

func parseBool(value string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(value))
	return b
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
