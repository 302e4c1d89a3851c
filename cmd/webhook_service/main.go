package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/viktorklasson/nylas-webhook/internal/platform/config"
	"github.com/viktorklasson/nylas-webhook/internal/platform/logger"
	adapterhttp "github.com/viktorklasson/nylas-webhook/internal/webhook_service/adapters/http"
	"github.com/viktorklasson/nylas-webhook/internal/webhook_service/adapters/nylas"
	"github.com/viktorklasson/nylas-webhook/internal/webhook_service/adapters/salesys"
	"github.com/viktorklasson/nylas-webhook/internal/webhook_service/app"
)

const (
	serviceName     = "webhook_service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger = appLogger.With("service", serviceName)
	appLogger.Info("Starting service...")

	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"server_port", cfg.ServerPort,
		"metrics_port", cfg.MetricsPort,
		"webhook_secret_present", cfg.NylasWebhookSecret != "",
		"nylas_api_key_present", cfg.NylasAPIKey != "",
		"salesys_configured", cfg.SalesysAPIToken != "" && cfg.SalesysUserID != "" && cfg.SalesysProjectID != "",
	)

	nylasClient := nylas.NewClient(
		cfg.NylasAPIBaseURL,
		cfg.NylasAPIKey,
		&http.Client{Timeout: cfg.NylasFetchTimeout()},
		appLogger,
	)
	salesysClient := salesys.NewClient(
		salesys.Config{
			BaseURL:         cfg.SalesysAPIBaseURL,
			Token:           cfg.SalesysAPIToken,
			UserID:          cfg.SalesysUserID,
			ProjectID:       cfg.SalesysProjectID,
			TagIDs:          cfg.TagIDs(),
			CompanyFieldID:  cfg.SalesysCompanyFieldID,
			DomainFieldID:   cfg.SalesysDomainFieldID,
			ResourceFieldID: cfg.SalesysResourceFieldID,
			DateOffsetDays:  cfg.OrderDateOffsetDays,
		},
		&http.Client{Timeout: cfg.OrderDispatchTimeout()},
		appLogger,
	)

	validate := validator.New()
	webhookService := app.NewService(nylasClient, salesysClient, validate, cfg.OrderDispatchTimeout(), appLogger)
	webhookHandler := adapterhttp.NewWebhookHandler(webhookService, cfg.NylasWebhookSecret, appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/webhook", webhookHandler.HandleChallenge)
	r.Post("/webhook", webhookHandler.HandleNotification)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: r,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("Webhook server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Metrics server listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Error shutting down webhook server", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Error shutting down metrics server", "error", err)
		}
		return nil
	})

	appLogger.Info("Service components initialized. Service is ready.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLogger.Info("Received termination signal", "signal", sig.String())
	case <-groupCtx.Done():
		appLogger.Error("A critical component failed, initiating shutdown")
	}

	mainCancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Error during graceful shutdown", "error", err)
	}

	appLogger.Info("Service shutdown complete.")
}
