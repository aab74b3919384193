// Package main is the entry point for the expert finder HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/olusayo/zendesk-sme-finder/internal/bootstrap"
	"github.com/olusayo/zendesk-sme-finder/internal/config"
	"github.com/olusayo/zendesk-sme-finder/internal/handler"
	"github.com/olusayo/zendesk-sme-finder/internal/middleware"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
	"github.com/olusayo/zendesk-sme-finder/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting expert finder API")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "zendesk-sme-finder", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build expert finder", zap.Error(err))
	}
	defer app.Close()

	healthHandler := handler.NewHealthHandler(app.Checks)
	finderHandler := handler.NewFinderHandler(app.Finder, log)
	webhookHandler := handler.NewWebhookHandler(app.Finder, cfg.ZendeskTriggerTag, log)
	if cfg.WebhookEnabled() && !cfg.ZendeskConfigured() {
		log.Warn("zendesk webhook enabled without zendesk credentials, deliveries will run in fallback mode")
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.AuthEnabled {
				r.Use(middleware.Auth(cfg.JWTSecret))
				r.Use(middleware.RequireScope(middleware.ScopeFindExperts))
			}
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Post("/find-experts", finderHandler.FindExperts)
		})

		// Zendesk signs its deliveries instead of sending a bearer token.
		if cfg.WebhookEnabled() {
			r.With(middleware.ZendeskSignature(cfg.ZendeskWebhookSecret)).
				Post("/webhooks/zendesk", webhookHandler.Zendesk)
		}
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := webhookHandler.Wait(shutdownCtx); err != nil {
		log.Warn("webhook workflows still running at shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
