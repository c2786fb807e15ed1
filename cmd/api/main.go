// Package main is the entry point for the reservation API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/booking"
	"github.com/goodfoods/reservation-platform/internal/catalog"
	"github.com/goodfoods/reservation-platform/internal/config"
	"github.com/goodfoods/reservation-platform/internal/handler"
	"github.com/goodfoods/reservation-platform/internal/llm"
	"github.com/goodfoods/reservation-platform/internal/matching"
	natsclient "github.com/goodfoods/reservation-platform/internal/nats"
	"github.com/goodfoods/reservation-platform/internal/service"
	"github.com/goodfoods/reservation-platform/internal/tools"
	"github.com/goodfoods/reservation-platform/pkg/logger"
	"github.com/goodfoods/reservation-platform/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting reservation API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "goodfoods-reservations", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	restaurants, err := catalog.Load(cfg.CatalogFile, log)
	if err != nil {
		return err
	}

	orders, err := booking.OpenOrderStore(cfg.BookingsFile, log)
	if err != nil {
		return err
	}

	bookings := booking.NewService(restaurants, orders, log)
	engine := matching.NewEngine(restaurants, cfg.SearchResultLimit, log)

	var backend tools.Backend = tools.NewLocalBackend(engine, bookings, cfg.CapacityDebug)
	if cfg.ToolBackendURL != "" {
		backend = tools.NewHTTPBackend(cfg.ToolBackendURL, cfg.ToolBackendTimeout)
		log.Info("dispatching tools over HTTP", zap.String("url", cfg.ToolBackendURL))
	}

	dispatcher, err := tools.NewDispatcher(backend, log)
	if err != nil {
		return err
	}

	apiKey := cfg.OpenAIAPIKey
	if llm.Provider(cfg.LLMProvider) == llm.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	client, err := llm.NewClient(llm.Provider(cfg.LLMProvider), apiKey, cfg.LLMModel)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", cfg.LLMProvider, err)
	}
	client = llm.WithInstrumentation(llm.WithRateLimit(client, cfg.LLMRequestsPerSecond, cfg.LLMBurst))

	prompt, err := service.LoadPrompt(cfg.SystemPromptFile)
	if err != nil {
		return err
	}

	var (
		publisher   service.EventPublisher
		transcripts handler.TranscriptReader
	)
	checks := []handler.ReadinessCheck{handler.CatalogCheck(restaurants)}
	if cfg.NATSEnabled {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		streams := natsclient.NewStreamManager(natsClient.JetStream())
		if err := streams.EnsureStream(ctx); err != nil {
			return err
		}
		bookings.SetPublisher(streams)
		publisher = streams
		transcripts = streams
		checks = append(checks, handler.NATSCheck(natsClient))
	}

	sessions := service.NewSessionService(prompt, publisher, log)
	orchestrator := service.NewOrchestrator(client, dispatcher, publisher, service.OrchestratorConfig{
		Model:         cfg.LLMModel,
		MaxTokens:     cfg.LLMMaxTokens,
		MaxToolRounds: cfg.MaxToolRounds,
		TurnTimeout:   cfg.TurnTimeout,
	}, log)

	router := handler.NewRouter(handler.Handlers{
		Health:       handler.NewHealthHandler(checks...),
		Restaurants:  handler.NewRestaurantHandler(engine),
		Reservations: handler.NewReservationHandler(bookings, cfg.CapacityDebug, log),
		Sessions:     handler.NewSessionHandler(sessions, orchestrator, transcripts, log),
	}, handler.RouterConfig{
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
