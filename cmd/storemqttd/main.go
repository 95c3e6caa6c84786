package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/henryleach/store-mqtt-data/config"
	"github.com/henryleach/store-mqtt-data/internal/api"
	"github.com/henryleach/store-mqtt-data/internal/db"
	"github.com/henryleach/store-mqtt-data/internal/ingest"
	"github.com/henryleach/store-mqtt-data/internal/observability"
	"github.com/henryleach/store-mqtt-data/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "store-mqtt-data ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./store-mqtt-data.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	gormDB, err := db.Init(&cfg.Storage, cfg.ArchiveTables())
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	appStore := store.NewGormStore(gormDB, cfg.ArchiveTables(), cfg.Storage.ArchiveInterval, clock, metrics)
	logger.Println("data store initialized")

	handler := ingest.NewHandler(appStore, cfg.Measures, clock, metrics)
	ingestSvc := ingest.NewService(&cfg.MQTT, cfg.Measures, handler)
	if err := ingestSvc.Start(); err != nil {
		logger.Fatalf("failed to start MQTT ingestion: %v", err)
	}
	logger.Printf("subscribed to broker %s:%d", cfg.MQTT.Host, cfg.MQTT.Port)

	var server *http.Server
	if cfg.Server.Enabled {
		router := api.NewRouter(appStore, &cfg.Server)
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		}
		go func() {
			logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatalf("HTTP server ListenAndServe: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	ingestSvc.Stop()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Fatalf("HTTP server Shutdown: %v", err)
		}
	}

	logger.Println("Server gracefully stopped")
}
