package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nkiranraj/oncov3/config"
	"github.com/nkiranraj/oncov3/data"
	"github.com/nkiranraj/oncov3/logging"
	"github.com/nkiranraj/oncov3/regimenparser"
	"github.com/nkiranraj/oncov3/scheduler"
	"github.com/nkiranraj/oncov3/server"
	"github.com/nkiranraj/oncov3/validation"
)

func main() {
	// Read the env variables; a missing .env just means the real
	// environment is used as-is
	if err := godotenv.Load(); err != nil {
		logging.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger("logs")

	dataContainer := data.NewDataContainer()
	loader := regimenparser.NewRegimenParser()
	validator := validation.NewRegimenValidator()

	sched := scheduler.NewScheduler(dataContainer, loader, cfg.RegimenDir,
		time.Duration(cfg.RescanMinutes)*time.Minute)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := server.NewServer(cfg, dataContainer, validator)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-quit

	// Create a context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown error", "error", err)
	}
}
