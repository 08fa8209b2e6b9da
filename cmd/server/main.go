package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/interviewlab/backend/internal/config"
	"github.com/interviewlab/backend/internal/httpapi"
	"github.com/interviewlab/backend/internal/observability"
	"github.com/interviewlab/backend/internal/session"
	"github.com/interviewlab/backend/internal/storage"
	"github.com/interviewlab/backend/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	log := observability.NewLogger(cfg.Log.Level)
	metrics := observability.NewMetrics()

	repo, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open storage")
	}
	defer repo.Close()

	lifecycle := session.NewLifecycle(repo)
	registry := ws.NewRegistry(cfg.Feedback.Interval.Std(), cfg.Feedback.EmissionCap, log, metrics)
	wsServer := ws.NewServer(registry, log, metrics, cfg.Server.AllowedOrigins, cfg.Server.AuthToken)
	api := httpapi.New(repo, lifecycle, registry, wsServer, metrics, log, cfg.Server.AuthToken, cfg.Storage.Driver)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.Router(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		registry.StopAll()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Info().Str("addr", addr).Str("storage", cfg.Storage.Driver).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
}
