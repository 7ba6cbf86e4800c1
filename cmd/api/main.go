// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tripflow-ai/itinerary-platform/internal/config"
	"github.com/tripflow-ai/itinerary-platform/internal/handler"
	"github.com/tripflow-ai/itinerary-platform/internal/journal"
	"github.com/tripflow-ai/itinerary-platform/internal/ledger"
	"github.com/tripflow-ai/itinerary-platform/internal/llm"
	"github.com/tripflow-ai/itinerary-platform/internal/middleware"
	"github.com/tripflow-ai/itinerary-platform/internal/provider"
	"github.com/tripflow-ai/itinerary-platform/internal/service"
	"github.com/tripflow-ai/itinerary-platform/internal/store"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
	"github.com/tripflow-ai/itinerary-platform/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "itinerary-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Chat transcripts go to JetStream; fall back to the in-process
	// journal when NATS is unreachable.
	var transcript journal.Transcript
	natsClient, err := journal.Connect(ctx, journal.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Warn("NATS unavailable, using in-memory transcripts", zap.Error(err))
		natsClient = nil
		transcript = journal.NewMemory()
	} else {
		defer natsClient.Close()
		j := journal.New(natsClient)
		if err := j.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure transcript stream", zap.Error(err))
			os.Exit(1)
		}
		transcript = j
	}

	planner, err := buildPlanner(cfg, log)
	if err != nil {
		log.Error("failed to create AI planner", zap.Error(err))
		os.Exit(1)
	}

	var ldg ledger.Ledger = ledger.Free{}
	if cfg.LedgerBaseURL != "" {
		ldg = ledger.NewHTTPLedger(cfg.LedgerBaseURL)
	}

	tripSvc := service.NewTripService(store.NewMemory(), planner, ldg, transcript, log)
	tripSvc.SetGenerationTimeout(cfg.GenerationTimeout)

	healthHandler := handler.NewHealthHandler(natsClient)
	tripHandler := handler.NewTripHandler(tripSvc, log)
	chatHandler := handler.NewChatHandler(tripSvc, log)
	exploreHandler := handler.NewExploreHandler(tripSvc, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/trips", func(r chi.Router) {
			r.Post("/", tripHandler.Create)
			r.Get("/", tripHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", tripHandler.Get)
				r.Delete("/", tripHandler.Delete)

				r.Get("/messages", tripHandler.Messages)
				r.Post("/chat", chatHandler.Send)
				r.Post("/feasibility", tripHandler.Feasibility)

				r.Get("/explore", exploreHandler.Activate)
				r.Post("/explore/search", exploreHandler.Search)
				r.Post("/explore/more", exploreHandler.More)
			})
		})
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
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
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

	log.Info("server stopped")
}

// buildPlanner selects the AI transport from configuration. All
// transports satisfy the same Planner interface.
func buildPlanner(cfg *config.Config, log *logger.Logger) (provider.Planner, error) {
	if cfg.AIProvider == "proxy" {
		if cfg.ProxyBaseURL == "" {
			return nil, fmt.Errorf("AI_PROXY_BASE_URL is required for the proxy provider")
		}
		return provider.NewProxyPlanner(cfg.ProxyBaseURL, log), nil
	}

	var apiKey string
	switch llm.Provider(cfg.AIProvider) {
	case llm.ProviderAnthropic:
		apiKey = cfg.AnthropicAPIKey
	case llm.ProviderOpenAI:
		apiKey = cfg.OpenAIAPIKey
	case llm.ProviderLocal:
		apiKey = cfg.OpenAIAPIKey
	}

	client, err := llm.NewClient(llm.Provider(cfg.AIProvider), apiKey, cfg.LocalLLMBaseURL)
	if err != nil {
		return nil, err
	}
	return provider.NewLLMPlanner(client, log), nil
}
