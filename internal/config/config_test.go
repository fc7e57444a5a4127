package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/iap-event-logger/internal/sink"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_URL", "postgres://localhost/analytics")
	t.Setenv("CATALOG_PATH", "/etc/catalog.yaml")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("API_KEYS", "")
	t.Setenv("FLUSH_BEHAVIOR", "")
	t.Setenv("FLUSH_INTERVAL", "")
	t.Setenv("FLUSH_BATCH_SIZE", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("APP_ID", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "default-app", cfg.AppID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, sink.Auto, cfg.FlushBehavior)
	assert.Equal(t, 15*time.Second, cfg.FlushInterval)
	assert.Equal(t, 100, cfg.FlushBatchSize)
	assert.Equal(t, map[string]string{"client-key-123": "ios-app"}, cfg.APIKeys)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("API_KEYS", "ios:key-a, android:key-b")
	t.Setenv("FLUSH_BEHAVIOR", "explicit_only")
	t.Setenv("FLUSH_INTERVAL", "2s")
	t.Setenv("FLUSH_BATCH_SIZE", "10")
	t.Setenv("APP_ID", "shop")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"key-a": "ios", "key-b": "android"}, cfg.APIKeys)
	assert.Equal(t, sink.ExplicitOnly, cfg.FlushBehavior)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
	assert.Equal(t, 10, cfg.FlushBatchSize)
	assert.Equal(t, "shop", cfg.AppID)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing db url":    {"DB_URL": ""},
		"missing catalog":   {"CATALOG_PATH": ""},
		"bad api keys":      {"API_KEYS": "no-colon"},
		"empty key":         {"API_KEYS": "ios:"},
		"bad behavior":      {"FLUSH_BEHAVIOR": "sometimes"},
		"bad interval":      {"FLUSH_INTERVAL": "soon"},
		"negative batch":    {"FLUSH_BATCH_SIZE": "-1"},
		"non-numeric batch": {"FLUSH_BATCH_SIZE": "many"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
