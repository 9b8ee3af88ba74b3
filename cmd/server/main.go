package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"tripmapper/internal/api"
	"tripmapper/internal/clients/nominatim"
	"tripmapper/internal/clients/osrm"
	"tripmapper/internal/config"
	"tripmapper/internal/lib/itinerary"
	"tripmapper/internal/lib/routing"
	"tripmapper/internal/lib/waypoint"
	"tripmapper/internal/logger"
	"tripmapper/internal/metrics"
	"tripmapper/internal/services"
	"tripmapper/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	flag.Parse()

	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.File, cfg.Logging.Level)

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		logrus.WithError(err).Fatal("failed to create data directory")
	}
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open route store")
	}
	defer st.Close()

	collector := metrics.NewCollector()

	geocoder := services.InstrumentGeocoder(
		nominatim.NewClient(cfg.Geocoding.BaseURL, cfg.Geocoding.UserAgent), collector)
	router := services.InstrumentRouter(
		osrm.NewClient(cfg.Routing.BaseURL, cfg.Routing.Profile), collector)

	resolver := waypoint.NewResolver(geocoder, cfg.Geocoding.MinInterval)
	engine := routing.NewEngine(router, float64(cfg.Routing.FallbackStepSize))

	var extractor itinerary.Extractor
	if cfg.Extraction.APIKey != "" {
		extractor = itinerary.NewExtractor(cfg.Extraction.APIKey, cfg.Extraction.Model)
		logrus.WithField("model", cfg.Extraction.Model).Info("Itinerary extraction enabled")
	} else {
		logrus.Warn("OPENAI_API_KEY not set, itinerary extraction disabled")
	}

	planner := services.NewPlanner(st, resolver, engine, extractor, collector)

	autosave := services.NewAutosave(st, cfg.Storage.AutosaveDebounce)
	planner.SetAutosave(autosave)

	server := api.NewServer(planner, st, collector, cfg.Server.AppVersion, cfg.Storage.BackupDir)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Router(cfg.Server.CorsOrigins),
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Trip mapper server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("server shutdown failed")
	}
	// Flush any edits still inside the debounce window
	autosave.Stop()
}
