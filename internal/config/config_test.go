package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"NOTION_API_URL", "NOTION_HTTP_TIMEOUT_SECONDS", "NOTION_AUTOSAVE_MS",
		"NOTION_REFRESH_INTERVAL_SECONDS", "NOTION_TOKEN_STORE", "NOTION_PROFILE",
	} {
		t.Setenv(key, "")
	}
	cfg := Load()
	assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5*time.Second, cfg.AutosaveDelay)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "file", cfg.TokenStore)
	assert.Equal(t, "default", cfg.Profile)
	assert.NotEmpty(t, cfg.TokenFile)
	assert.NotEmpty(t, cfg.HistoryDir)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("NOTION_API_URL", "https://notes.example.com/api")
	t.Setenv("NOTION_AUTOSAVE_MS", "500")
	t.Setenv("NOTION_HTTP_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("NOTION_TOKEN_STORE", "redis")
	t.Setenv("NOTION_DEBUG_HTTP", "true")

	cfg := Load()
	assert.Equal(t, "https://notes.example.com/api", cfg.APIURL)
	assert.Equal(t, 500*time.Millisecond, cfg.AutosaveDelay)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout, "invalid values fall back")
	assert.Equal(t, "redis", cfg.TokenStore)
	assert.True(t, cfg.DebugHTTP)
}
