// Package config reads CLI settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultSystemMessage = "You are a helpful assistant."
	DefaultStorageDir    = ".simplechat/conversations"
)

type Config struct {
	Provider string
	APIKey   string
	Model    string
	UserName string

	SystemMessage string
	Timezone      *time.Location

	StorageBackend string // "file", "sqlite" or "memory"
	StorageDir     string
	StorageFormat  string // "json" or "yaml"

	MaxHistory   int
	MaxToolCalls int
	TokenBudget  int
	RateLimit    float64 // external calls per minute per conversation; 0 disables

	MetricsAddr string
	LogLevel    string
	LogJSON     bool
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || strings.EqualFold(v, "true")
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

// Load builds the config from SC_* variables and the provider's API key.
func Load() (*Config, error) {
	cfg := &Config{
		Provider:       strings.ToLower(getEnv("SC_PROVIDER", "openai")),
		Model:          getEnv("SC_MODEL", ""),
		UserName:       getEnv("SC_USER_NAME", getEnv("USER", "user")),
		SystemMessage:  getEnv("SC_SYSTEM_MESSAGE", DefaultSystemMessage),
		StorageBackend: strings.ToLower(getEnv("SC_STORAGE_BACKEND", "file")),
		StorageDir:     getEnv("SC_STORAGE_DIR", DefaultStorageDir),
		StorageFormat:  strings.ToLower(getEnv("SC_STORAGE_FORMAT", "json")),
		MetricsAddr:    getEnv("SC_METRICS_ADDR", ""),
		LogLevel:       getEnv("SC_LOG_LEVEL", "info"),
		LogJSON:        getBoolEnv("SC_LOG_JSON", false),
	}

	switch cfg.Provider {
	case "openai":
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	default:
		return nil, fmt.Errorf("invalid SC_PROVIDER %q: want openai or anthropic", cfg.Provider)
	}
	switch cfg.StorageBackend {
	case "file", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("invalid SC_STORAGE_BACKEND %q: want file, sqlite or memory", cfg.StorageBackend)
	}
	switch cfg.StorageFormat {
	case "json", "yaml":
	default:
		return nil, fmt.Errorf("invalid SC_STORAGE_FORMAT %q: want json or yaml", cfg.StorageFormat)
	}

	tz := getEnv("SC_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid SC_TIMEZONE %q: %w", tz, err)
	}
	cfg.Timezone = loc

	if cfg.MaxHistory, err = getIntEnv("SC_MAX_HISTORY", 21); err != nil {
		return nil, err
	}
	if cfg.MaxToolCalls, err = getIntEnv("SC_MAX_TOOL_CALLS", 1); err != nil {
		return nil, err
	}
	if cfg.TokenBudget, err = getIntEnv("SC_TOKEN_BUDGET", 0); err != nil {
		return nil, err
	}
	if v := os.Getenv("SC_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid SC_RATE_LIMIT %q", v)
		}
		cfg.RateLimit = f
	}
	return cfg, nil
}
