package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	port := flag.String("port", cfg.Server.Port, "HTTP server port")
	healthAddr := flag.String("health", cfg.Server.HealthAddr, "gRPC health address (empty disables)")
	backend := flag.String("store", cfg.Store.Backend, "Store backend: memory, badger, sqlite or redis")
	dataPath := flag.String("data", cfg.Store.Path, "Badger directory or sqlite file")
	manifest := flag.String("manifest", cfg.Manifest.Path, "Static registrations manifest")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Server.HealthAddr = *healthAddr
	cfg.Store.Backend = *backend
	cfg.Store.Path = *dataPath
	cfg.Manifest.Path = *manifest
	cfg.Logging.Development = *dev
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx)
	if err := srv.Close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if runErr != nil {
		log.Fatalf("Server error: %v", runErr)
	}
}
