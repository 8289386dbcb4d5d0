package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	APIURL          string
	HTTPTimeout     time.Duration
	AutosaveDelay   time.Duration
	RefreshInterval time.Duration
	// Token persistence: file, redis or memory
	TokenStore      string
	TokenFile       string
	TokenPassphrase string
	Profile         string
	RedisURL        string
	HistoryDir      string
	Verbose         bool
	DebugHTTP       bool
}

func Load() Config {
	dir := stateDir()
	return Config{
		APIURL:          getenv("NOTION_API_URL", "http://localhost:8080/api"),
		HTTPTimeout:     time.Duration(getenvInt("NOTION_HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		AutosaveDelay:   time.Duration(getenvInt("NOTION_AUTOSAVE_MS", 5000)) * time.Millisecond,
		RefreshInterval: time.Duration(getenvInt("NOTION_REFRESH_INTERVAL_SECONDS", 900)) * time.Second,
		TokenStore:      getenv("NOTION_TOKEN_STORE", "file"),
		TokenFile:       getenv("NOTION_TOKEN_FILE", filepath.Join(dir, "token.json")),
		TokenPassphrase: os.Getenv("NOTION_TOKEN_PASSPHRASE"),
		Profile:         getenv("NOTION_PROFILE", "default"),
		RedisURL:        getenv("REDIS_URL", "redis://localhost:6379/0"),
		HistoryDir:      getenv("NOTION_HISTORY_DIR", filepath.Join(dir, "history")),
		Verbose:         getenvBool("NOTION_VERBOSE", false),
		DebugHTTP:       getenvBool("NOTION_DEBUG_HTTP", false),
	}
}

func stateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "notion-clone")
	}
	return ".notion-clone"
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
