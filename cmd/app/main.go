package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gtm-backend/internal/app"
	"gtm-backend/internal/common/config"
	"gtm-backend/internal/common/logger"
	apphttp "gtm-backend/internal/http"
)

// @title           GTM Giveaway API
// @version         1.0
// @description     Giveaway draws, subscription tickets, referrals and ratings for the GTM Telegram Mini App.

// @BasePath  /api

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data

// @securityDefinitions.apikey AdminBearer
// @in header
// @name Authorization

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger.Init("gtm-backend", cfg.Debug)
	logger.Info().
		Bool("debug", cfg.Debug).
		Str("results_backend", cfg.Giveaway.ResultsBackend).
		Msg("starting gtm backend")

	container, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer container.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      apphttp.NewRouter(container),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // generate-results may wait on another instance's lock
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
