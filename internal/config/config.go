package config

import (
	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
	DriverMySQL    DatabaseDriver = "mysql"
	DriverMongo    DatabaseDriver = "mongo"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	WaitStickerID    string `env:"WAIT_STICKER_ID" envDefault:"CAACAgIAAxkBAAMvZgyQ7m2iWGQRXoc3Jx5yeR5Fat8AAl4SAALsmSlJfO_ZpUf3ZDs0BA"`

	// Database
	DatabaseDriver DatabaseDriver `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string         `env:"DATABASE_URL" envDefault:"data/postcrafter.db"`
	MongoDatabase  string         `env:"MONGO_DATABASE" envDefault:"postcrafter"`

	// Archive of generated posts, empty disables it
	PostLogPath string `env:"POST_LOG_PATH" envDefault:"logs/posts.jsonl"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompt template overrides
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`
	UserPromptPath   string `env:"USER_PROMPT_PATH"`

	// Optional surfaces
	DigestCron string `env:"DIGEST_CRON"`
	StatusAddr string `env:"STATUS_ADDR"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	switch cfg.DatabaseDriver {
	case DriverSQLite, DriverPostgres, DriverMySQL, DriverMongo:
	default:
		return nil, errors.Errorf("unknown database driver: %s", cfg.DatabaseDriver)
	}
	switch cfg.LLMProvider {
	case ProviderOpenAI, ProviderYandex:
	default:
		return nil, errors.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
	return cfg, nil
}
