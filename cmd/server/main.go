package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tfta-mcp-server/internal/api"
	"github.com/tfta-mcp-server/internal/config"
	"github.com/tfta-mcp-server/internal/setup"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)
	logger.WithField("port", cfg.Server.Port).Info("Starting TFTA HTTP server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := setup.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build query engine")
	}
	defer components.Close()

	server := api.NewServer(configManager, components.Agent, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		return
	}
	logger.Info("Server stopped")
}
