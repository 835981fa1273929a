// Package app assembles the components shared by the bot and the MCP server.
package app

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"postcrafter/internal/config"
	"postcrafter/internal/digest"
	"postcrafter/internal/llm"
	"postcrafter/internal/prompt"
	"postcrafter/internal/storage"
	"postcrafter/internal/storage/db"
)

type App struct {
	Store  storage.Store
	Posts  storage.PostRecorder
	Digest *digest.Service
	Logger *slog.Logger
}

// NewLogger returns a JSON logger at level ("debug", "info", "warn", "error").
func NewLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// New opens the database and builds the digest pipeline. Close must be
// called when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	builder, err := prompt.NewBuilderFromFiles(cfg.SystemPromptPath, cfg.UserPromptPath)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewFactory(cfg).CreateClient(cfg.LLMProvider, cfg.OpenAIModel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create llm client")
	}

	store, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database ready", "driver", cfg.DatabaseDriver)

	opts := []digest.Option{digest.WithLogger(logger)}
	var posts storage.PostRecorder
	if cfg.PostLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.PostLogPath)
		if err != nil {
			logger.Warn("post archive disabled", "path", cfg.PostLogPath, "err", err)
		} else {
			posts = fr
			opts = append(opts, digest.WithPostRecorder(fr))
		}
	}

	dispatcher := digest.NewDispatcher(client, store, logger)
	return &App{
		Store:  store,
		Posts:  posts,
		Digest: digest.NewService(store, builder, dispatcher, cfg.OpenAIModel, opts...),
		Logger: logger,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
