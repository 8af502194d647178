package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tfta-mcp-server/internal/config"
	"github.com/tfta-mcp-server/internal/mcp"
	"github.com/tfta-mcp-server/internal/setup"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := configManager.GetConfig()

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.NewCLI(cfg, "").Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// stdout carries MCP traffic, so logs go to stderr
	logger := config.NewLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := setup.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build query engine")
	}
	defer components.Close()

	server := mcp.NewServer(components.Agent, cfg.MCP, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping MCP server")
		cancel()
	}()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server stopped with error")
		return
	}
	logger.Info("TFTA MCP server stopped")
}
