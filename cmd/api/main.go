package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/supportops/triage-gateway/internal/agent"
	"github.com/supportops/triage-gateway/internal/api/rest"
	"github.com/supportops/triage-gateway/internal/api/rest/handlers"
	"github.com/supportops/triage-gateway/internal/audit"
	"github.com/supportops/triage-gateway/internal/executor"
	"github.com/supportops/triage-gateway/internal/integrations"
	"github.com/supportops/triage-gateway/internal/store"
	"github.com/supportops/triage-gateway/internal/triage"
	"github.com/supportops/triage-gateway/pkg/config"
	"github.com/supportops/triage-gateway/pkg/database"
	"github.com/supportops/triage-gateway/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	logger.SetDefault(log)
	log.Info("Starting Triage Gateway API",
		logger.String("version", cfg.App.Version),
		logger.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL
	db, err := database.NewPostgresDB(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(log); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Initialize Redis
	redis, err := database.NewRedisClient(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redis.Close()

	// Stores
	pendingStore := store.NewPendingStore(redis.Client, cfg.Approval.TTL, log)
	dedupCache := store.NewDedupCache(redis.Client, cfg.Dedup.TTL)
	eventStore := store.NewEventStore(db.DB)

	// Async audit pipeline
	auditSink := audit.NewPostgresSink(db.DB)
	auditWorker := audit.NewWorker(auditSink, cfg.Audit.QueueSize, cfg.Audit.MaxRetries, cfg.Audit.RetryDelay, log)
	auditWorker.Start()
	defer auditWorker.Stop()

	// Outbound collaborators
	linear := integrations.NewLinearClient(cfg.Linear.BaseURL, cfg.Linear.APIKey, cfg.Linear.TeamID, log)
	telegram := integrations.NewTelegramClient(cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Approval.TelegramApprovalChat, log)

	// Tool registry
	exec := executor.New(eventStore, log)
	exec.Register(executor.ToolCreateTicketAndReply, executor.NewTicketAndReplyHandler(linear, telegram))
	exec.Register(executor.ToolFlagForHuman, executor.NewFlagForHumanHandler())

	// Triager
	triager, err := triage.New(&cfg.Triage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize triager: %w", err)
	}

	// Pipeline orchestrator
	pipeline := agent.New(cfg, triager, exec, pendingStore, dedupCache, telegram, auditWorker, eventStore, log)

	// Initialize handlers
	h := handlers.NewHandlers(log, pipeline, &handlers.HealthCheckers{
		DB:    db,
		Redis: redis,
	}, cfg.App.Version)

	// Initialize router
	router := rest.NewRouter(cfg, log, h, redis)
	router.SetupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("API server listening", logger.String("address", addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", logger.String("signal", sig.String()))

		// Give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
