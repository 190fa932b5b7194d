package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort        string
	DirectoryURL    string
	OpenAIKey       string
	OpenAIModel     string
	CRMWebhookURL   string // Optional; delivery attempts fail explicitly when unset
	DatabaseURL     string // Optional; memory store is used when unset
	SlackBotToken   string // Optional secondary delivery channel
	SlackChannelID  string
	CacheTTL        time.Duration
	SweepInterval   time.Duration
	IdleTimeout     time.Duration
	ExternalTimeout time.Duration // Bound on directory/interpretation/CRM calls
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	directoryURL := getEnv("DIRECTORY_API_URL", "")
	if directoryURL == "" {
		log.Fatal("FATAL: DIRECTORY_API_URL environment variable is not set.")
	}

	openAIKey := getEnv("OPENAI_API_KEY", "")
	if openAIKey == "" {
		log.Fatal("FATAL: OPENAI_API_KEY environment variable is not set.")
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DirectoryURL:    directoryURL,
		OpenAIKey:       openAIKey,
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o"),
		CRMWebhookURL:   getEnv("CRM_WEBHOOK_URL", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SlackBotToken:   getEnv("SLACK_BOT_TOKEN", ""),
		SlackChannelID:  getEnv("SLACK_CHANNEL_ID", ""),
		CacheTTL:        secondsEnv("CACHE_TTL_SECONDS", 300),
		SweepInterval:   secondsEnv("SWEEP_INTERVAL_SECONDS", 60),
		IdleTimeout:     minutesEnv("IDLE_TIMEOUT_MINUTES", 30),
		ExternalTimeout: secondsEnv("EXTERNAL_CALL_TIMEOUT_SECONDS", 30),
	}

	if cfg.CRMWebhookURL == "" {
		log.Println("WARN: CRM_WEBHOOK_URL is not set. CRM delivery attempts will fail until it is configured.")
	}

	log.Printf("Loaded config: Port=%s, DirectoryURL=%s, Model=%s, CacheTTL=%s, SweepInterval=%s, IdleTimeout=%s",
		cfg.HTTPPort, cfg.DirectoryURL, cfg.OpenAIModel, cfg.CacheTTL, cfg.SweepInterval, cfg.IdleTimeout)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func secondsEnv(key string, fallback int) time.Duration {
	return time.Duration(intEnv(key, fallback)) * time.Second
}

func minutesEnv(key string, fallback int) time.Duration {
	return time.Duration(intEnv(key, fallback)) * time.Minute
}

func intEnv(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return value
}
