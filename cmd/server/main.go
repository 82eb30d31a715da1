package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/chrono/internal/config"
	"github.com/agenthands/chrono/internal/research"
	"github.com/agenthands/chrono/internal/sched"
	"github.com/agenthands/chrono/internal/server"
	"github.com/agenthands/chrono/internal/stream"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	client := research.NewHTTPClient(cfg.Backend.BaseURL, cfg.BackendTimeout(), cfg.Backend.Language, logger)
	driver := stream.NewSSEDriver(cfg.Backend.BaseURL)
	driver.MaxEventBytes = cfg.Stream.MaxEventBytes
	driver.Logger = logger

	srv, err := server.NewServer(cfg, client, driver, sched.Timers{}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer srv.Close()
	r := srv.SetupRouter()

	log.Printf("Starting server on port %s (backend %s)", cfg.Server.Port, cfg.Backend.BaseURL)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
