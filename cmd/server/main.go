package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/lab-insight-server/internal/api"
	"github.com/lab-insight-server/internal/config"
	"github.com/lab-insight-server/internal/service"
	"github.com/lab-insight-server/pkg/inference"
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
	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	// Load the reference-range table (built-in defaults when no file is set)
	table, err := config.LoadRangeTable(cfg.Ranges.File)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load reference range table")
	}

	// Wire the analysis pipeline
	gateway := inference.NewClient(cfg.Inference, logger)
	analyzer, err := service.NewAnalyzer(table, gateway, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create analyzer")
	}

	logger.WithFields(logrus.Fields{
		"host":                 cfg.Server.Host,
		"port":                 cfg.Server.Port,
		"analytes":             len(table),
		"inference_configured": gateway.Configured(),
	}).Info("Starting lab insight server")

	// Create server
	server := api.NewServer(cfg, analyzer, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the process logger from configuration.
func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if strings.ToLower(format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
