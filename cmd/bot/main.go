package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"postcrafter/internal/app"
	"postcrafter/internal/config"
	"postcrafter/internal/scheduler"
	"postcrafter/internal/status"
	"postcrafter/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}
	logger, err := app.NewLogger(cfg.LogLevel, os.Stdout)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("bot failed", "err", err)
		os.Exit(1)
	}
	logger.Info("bot stopped")
}

// run owns every resource it opens, so all of them are released before main
// decides on the exit code.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return errors.Wrap(err, "startup failed")
	}
	defer a.Close()

	bot, err := telegram.New(cfg.TelegramBotToken, a.Store, a.Store, a.Digest,
		telegram.WithWaitSticker(cfg.WaitStickerID),
		telegram.WithLogger(logger),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create bot")
	}

	if cfg.DigestCron != "" {
		sched := scheduler.New(cfg.DigestCron, time.Local, bot.SendDailyDigests, logger)
		if err := sched.Start(); err != nil {
			return errors.Wrap(err, "failed to start scheduler")
		}
		defer sched.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.StatusAddr != "" {
		router := status.NewRouter(a.Store, a.Posts, time.Now)
		g.Go(func() error {
			return status.Serve(ctx, cfg.StatusAddr, router, logger)
		})
	}
	g.Go(func() error {
		logger.Info("bot started", "llm_provider", cfg.LLMProvider, "model", cfg.OpenAIModel)
		return serveBot(ctx, bot.Start)
	})
	return g.Wait()
}

// serveBot runs start until it returns. Start also returns when Telegram
// closes the updates channel; that case is an error so the group cancels the
// status server too.
func serveBot(ctx context.Context, start func(context.Context)) error {
	start(ctx)
	if ctx.Err() == nil {
		return errors.New("telegram updates channel closed")
	}
	return nil
}
