package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.ListenAddr)
		assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
		assert.Equal(t, "https://groceries.example.com/cart", cfg.GroceryCartURL)
		assert.False(t, cfg.LLMAvailable())
		assert.False(t, cfg.GroceryLive())
	})

	t.Run("ProvidersConfigured", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("GROCERY_API_URL", "https://store.test")
		t.Setenv("GROCERY_API_KEY", "abc:1234")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.LLMAvailable())
		assert.True(t, cfg.GroceryLive())
	})

	t.Run("SessionTTL", func(t *testing.T) {
		t.Setenv("SESSION_TTL_MINUTES", "5")
		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	})

	t.Run("InvalidSessionTTL", func(t *testing.T) {
		t.Setenv("SESSION_TTL_MINUTES", "zero")
		_, err := NewFromEnv()
		require.Error(t, err)
	})

	t.Run("AllowedUserIDs", func(t *testing.T) {
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "123, 456")
		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, []int64{123, 456}, cfg.TelegramAllowedUserIDs)
	})

	t.Run("InvalidAllowedUserIDs", func(t *testing.T) {
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "123,abc")
		_, err := NewFromEnv()
		require.Error(t, err)
	})

	t.Run("RequireTelegram", func(t *testing.T) {
		cfg := &Config{}
		require.Error(t, cfg.RequireTelegram())
		cfg.TelegramBotToken = "token"
		require.Error(t, cfg.RequireTelegram())
		cfg.TelegramWebhookURL = "https://bot.test/webhook"
		require.NoError(t, cfg.RequireTelegram())
	})
}
