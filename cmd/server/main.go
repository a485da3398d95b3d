package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"zonewatch/internal/app"
	"zonewatch/internal/config"
	"zonewatch/internal/logger"
)

func main() {
	cfg := config.Load()

	appLogger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("Server stopped: %v", err)
		appLogger.Close()
		os.Exit(1)
	}
	appLogger.Close()
}

func run(cfg *config.Config, appLogger *logger.Logger) error {
	application, err := app.NewApp(cfg, appLogger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		return err
	}
	appLogger.Info("🛑 Shutdown complete")
	return nil
}
