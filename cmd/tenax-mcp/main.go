// Package main provides the entry point for the tenax MCP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rab-crypto/tenax-sub001/internal/config"
	"github.com/Rab-crypto/tenax-sub001/internal/embedding"
	"github.com/Rab-crypto/tenax-sub001/internal/metrics"
	"github.com/Rab-crypto/tenax-sub001/internal/server"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
	"github.com/Rab-crypto/tenax-sub001/internal/tools"
)

const version = "0.1.0"

func main() {
	root, err := config.DetectProjectRoot()
	if err != nil {
		slog.Error("detect project root", "error", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(root)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.Level(), cfg.Level())
	defer func() { _ = cleanup() }()

	logger.Info("tenax-mcp starting",
		"version", version,
		"project_root", cfg.ProjectRoot,
		"embed_provider", cfg.EmbedProvider,
		"embed_model", cfg.EmbedModel,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	mc := metrics.NewCollector()
	svc, err := service.Open(ctx, cfg, logger, mc)
	if err != nil {
		logger.Error("failed to open project memory", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing vector store")
		_ = svc.Close()
		_ = embedding.CloseShared()
	}()
	logger.Info("embedder initialized",
		"model", svc.Embedder().Model(),
		"dimension", svc.Embedder().Dimension(),
	)

	// Create and setup server
	srv := server.New(version, logger)
	srv.Setup(&tools.Dependencies{
		Service:     svc,
		Logger:      logger,
		SearchLimit: cfg.SearchLimit,
	})
	logger.Info("tools registered", "count", len(tools.ToolNames))

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
