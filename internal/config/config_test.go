package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GRAPHQL_HTTP_URL", "https://example.test/graphql")
	t.Setenv("SESSION_SECRET", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")
	t.Setenv("GRAPHQL_WS_URL", "")
	t.Setenv("SESSION_TTL_MINUTES", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("GRAPHQL_WS_PROTOCOL", "")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "")
	t.Setenv("MAX_SESSIONS", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, "graphql-ws", cfg.WSProtocol)
	assert.Equal(t, 60*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 1000, cfg.MaxSessions)
	assert.False(t, cfg.LiveUpdates())
}

func TestLoadFromEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GRAPHQL_WS_URL", "wss://example.test/graphql")
	t.Setenv("GRAPHQL_WS_PROTOCOL", "graphql-transport-ws")
	t.Setenv("SESSION_TTL_MINUTES", "5")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "3")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("MAX_SESSIONS", "25")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test,")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddress())
	assert.True(t, cfg.LiveUpdates())
	assert.Equal(t, "graphql-transport-ws", cfg.WSProtocol)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, 25, cfg.MaxSessions)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
}

func TestLoadRequiresEndpointAndSecret(t *testing.T) {
	t.Setenv("GRAPHQL_HTTP_URL", "")
	t.Setenv("SESSION_SECRET", "x")
	_, err := Load("")
	assert.EqualError(t, err, "GRAPHQL_HTTP_URL is required")

	t.Setenv("GRAPHQL_HTTP_URL", "https://example.test/graphql")
	t.Setenv("SESSION_SECRET", "")
	_, err = Load("")
	assert.EqualError(t, err, "SESSION_SECRET is required")
}

func TestLoadRejectsUnknownProtocol(t *testing.T) {
	setRequired(t)
	t.Setenv("GRAPHQL_WS_PROTOCOL", "sse")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsNegativeSessionCap(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "userdeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_sessions: -1\n"), 0o600))
	_, err := Load(path)
	assert.EqualError(t, err, "max sessions must not be negative")
}

func TestLoadYAMLOverlay(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GRAPHQL_WS_PROTOCOL", "")
	path := filepath.Join(t.TempDir(), "userdeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
graphql_ws_url: wss://overlay.test/graphql
session_ttl: 90m
cors_allowed_origins:
  - https://overlay.test
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTPAddress())
	assert.Equal(t, "wss://overlay.test/graphql", cfg.GraphQLWSURL)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"https://overlay.test"}, cfg.CORSOrigins)
	assert.Equal(t, "https://example.test/graphql", cfg.GraphQLHTTPURL)
}

func TestLoadMissingYAML(t *testing.T) {
	setRequired(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}
