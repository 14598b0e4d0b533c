package config

import (
	"os"
	"strconv"
	"time"
)

// Config is loaded once at startup and never mutated afterwards. Both LLM
// call sites receive it at construction time.
type Config struct {
	Port          string
	DBPath        string
	MigrationsURL string
	WebDir        string

	OllamaURL    string
	OllamaAPIKey string
	OllamaModel  string

	ChatTimeout     time.Duration
	ClassifyTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8000"),
		DBPath:        getEnv("DB_PATH", "mood_tracker.db"),
		MigrationsURL: getEnv("MIGRATIONS_URL", "file://./migrations"),
		WebDir:        getEnv("WEB_DIR", "web"),

		OllamaURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaAPIKey: getEnv("OLLAMA_API_KEY", ""),
		OllamaModel:  getEnv("OLLAMA_MODEL", "gpt-oss:20b-cloud"),

		ChatTimeout:     getEnvAsDuration("CHAT_TIMEOUT", 60*time.Second),
		ClassifyTimeout: getEnvAsDuration("CLASSIFY_TIMEOUT", 60*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
