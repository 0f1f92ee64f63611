package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "file", cfg.Catalog.Source)
	assert.Equal(t, "public/db.json", cfg.Catalog.Path)
	assert.Equal(t, "vi", cfg.Catalog.Locale)
	assert.Equal(t, 3*time.Second, cfg.Form.RedirectDelay)
	assert.Equal(t, 1000, cfg.Form.MaxSessions)
	assert.Equal(t, 5*time.Second, cfg.Catalog.FetchTimeout)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "HTTP")
	t.Setenv("CATALOG_URL", "http://localhost:3000/db.json")
	t.Setenv("FORM_REDIRECT_DELAY", "250ms")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,,")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := Load()

	assert.Equal(t, "http", cfg.Catalog.Source)
	assert.Equal(t, "http://localhost:3000/db.json", cfg.Catalog.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Form.RedirectDelay)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
}
