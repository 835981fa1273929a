package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.TelegramBotToken)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "data/postcrafter.db", cfg.DatabaseURL)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	assert.Equal(t, "logs/posts.jsonl", cfg.PostLogPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.WaitStickerID)
	assert.Empty(t, cfg.DigestCron)
	assert.Empty(t, cfg.StatusAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("LLM_PROVIDER", "yandex")
	t.Setenv("DIGEST_CRON", "0 21 * * *")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, ProviderYandex, cfg.LLMProvider)
	assert.Equal(t, "0 21 * * *", cfg.DigestCron)
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("DATABASE_DRIVER", "redis")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown database driver")
	})
	t.Run("provider", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "gigachat")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown llm provider")
	})
}
