package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"postcrafter/internal/app"
	"postcrafter/internal/config"
	"postcrafter/internal/mcpserver"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// stdout carries the MCP transport, logs go to stderr.
	logger, err := app.NewLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	server := mcpserver.New(a.Store, a.Digest, logger).MCPServer()
	logger.Info("starting mcp server on stdio", "name", mcpserver.Name, "version", mcpserver.Version)
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil {
		logger.Error("mcp server failed", "err", err)
	}
}
