// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
)

// Config is loaded once at startup and injected into the components that need
// it. Values come from the environment; the composition root is responsible
// for loading a .env file first.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// RedisURL is the connection URL of the backing context store.
	RedisURL string

	GeminiAPIKey string

	// ChatModel drives the main tool-augmented loop.
	ChatModel string
	// VisionModel handles ambient screen analysis.
	VisionModel string
	// AuxiliaryModel serves lightweight side conversations.
	AuxiliaryModel string

	FirecrawlAPIKey string

	// OTLPEndpoint enables trace export when non-empty.
	OTLPEndpoint string
}

// FromEnv reads the configuration from environment variables, applying
// defaults where sensible. GEMINI_API_KEY is required.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:            getenv("ADDR", ":8080"),
		RedisURL:        getenv("REDIS_URL", "redis://localhost:6379"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		ChatModel:       getenv("GEMINI_CHAT_MODEL", "gemini-2.5-flash"),
		VisionModel:     getenv("GEMINI_VISION_MODEL", "gemini-2.5-flash-lite"),
		AuxiliaryModel:  getenv("GEMINI_AUXILIARY_MODEL", "gemini-2.5-flash-lite"),
		FirecrawlAPIKey: os.Getenv("FIRECRAWL_API_KEY"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
