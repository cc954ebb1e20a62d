// Package config provides configuration for the chat orchestrator.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Content classifier settings
	ClassifierURL     string
	GuardrailID       string
	GuardrailVersion  string
	ClassifierTimeout time.Duration

	// Model endpoint settings
	ModelURL     string
	ModelAPIKey  string
	ModelTimeout time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:       getEnv("DATABASE_URL", "file:chat.db?cache=shared&mode=rwc"),
		ClassifierURL:     getEnv("CLASSIFIER_URL", "http://localhost:9040"),
		GuardrailID:       getEnv("GUARDRAIL_ID", "default"),
		GuardrailVersion:  getEnv("GUARDRAIL_VERSION", "DRAFT"),
		ClassifierTimeout: time.Duration(getEnvInt("CLASSIFIER_TIMEOUT_MS", 10000)) * time.Millisecond,
		ModelURL:          getEnv("MODEL_URL", "http://localhost:9050"),
		ModelAPIKey:       getEnv("MODEL_API_KEY", ""),
		ModelTimeout:      time.Duration(getEnvInt("MODEL_TIMEOUT_MS", 60000)) * time.Millisecond,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
