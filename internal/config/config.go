package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the application. Provider keys are
// optional: a missing LLM key selects the rule-based extractor and offline
// planner, missing grocery credentials select the mock cart. That keeps the
// coaching flow identical with or without credentials.
type Config struct {
	GeminiAPIKey string
	GroqAPIKey   string

	// Grocery provider (live cart). APIKey uses the id:hex-secret format.
	GroceryAPIURL  string
	GroceryAPIKey  string
	GroceryCartURL string

	// Telegram front-end
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64

	ListenAddr   string
	DatabasePath string
	SessionTTL   time.Duration
	Debug        bool
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GroqAPIKey:     os.Getenv("GROQ_API_KEY"),
		GroceryAPIURL:  os.Getenv("GROCERY_API_URL"),
		GroceryAPIKey:  os.Getenv("GROCERY_API_KEY"),
		GroceryCartURL: os.Getenv("GROCERY_CART_URL"),

		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),

		ListenAddr:   envOrDefault("LISTEN_ADDR", ":8080"),
		DatabasePath: envOrDefault("DATABASE_PATH", "data/coach.db"),
		SessionTTL:   30 * time.Minute,
		Debug:        boolEnv("DEBUG"),
	}

	if cfg.GroceryCartURL == "" {
		cfg.GroceryCartURL = "https://groceries.example.com/cart"
	}

	if raw := os.Getenv("SESSION_TTL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("SESSION_TTL_MINUTES must be a positive integer, got %q", raw)
		}
		cfg.SessionTTL = time.Duration(minutes) * time.Minute
	}

	if raw := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid telegram user id %q: %w", part, err)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}

	if raw := os.Getenv("ADMIN_TELEGRAM_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID %q: %w", raw, err)
		}
		cfg.AdminTelegramID = id
	}

	return cfg, nil
}

// RequireTelegram validates the fields the Telegram binary cannot run without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

// LLMAvailable reports whether any text-generation provider is configured.
func (c *Config) LLMAvailable() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != ""
}

// GroceryLive reports whether the live cart provider is configured.
func (c *Config) GroceryLive() bool {
	return c.GroceryAPIURL != "" && c.GroceryAPIKey != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
