package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcrafter/internal/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("warn", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	_, err = NewLogger("loud", &buf)
	require.Error(t, err)
}

func TestNewWithSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabaseURL:    filepath.Join(dir, "db", "test.db"),
		PostLogPath:    filepath.Join(dir, "logs", "posts.jsonl"),
		LLMProvider:    config.ProviderOpenAI,
		OpenAIAPIKey:   "test",
		OpenAIModel:    "gpt-3.5-turbo",
	}
	logger, err := NewLogger("error", &bytes.Buffer{})
	require.NoError(t, err)

	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Digest)
	assert.NotNil(t, a.Posts)
	require.NoError(t, a.Store.Ping(context.Background()))
}

func TestNewRejectsMissingPromptFile(t *testing.T) {
	cfg := &config.Config{
		DatabaseDriver:   config.DriverSQLite,
		DatabaseURL:      ":memory:",
		LLMProvider:      config.ProviderOpenAI,
		SystemPromptPath: filepath.Join(t.TempDir(), "missing.txt"),
	}
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}
