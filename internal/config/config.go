// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
)

// Config holds all application configuration, read once from the environment
// at process start and passed into the constructors that need it.
type Config struct {
	Port          string
	DBPath        string
	OpenAIModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	SessionSecret string
	FactsPassword string
}

// Load reads configuration from environment variables. Every value has a
// default fallback so the application runs with no environment at all.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("CHAT_DB_PATH", "chatbot.db"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", "my-api"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		SessionSecret: getEnv("SESSION_SECRET", "dev-secret"),
		FactsPassword: getEnv("FACTS_PASSWORD", "hello123"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("CHAT_DB_PATH cannot be empty")
	}
	if c.OpenAIModel == "" {
		return fmt.Errorf("OPENAI_MODEL cannot be empty")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET cannot be empty")
	}
	if c.FactsPassword == "" {
		return fmt.Errorf("FACTS_PASSWORD cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
