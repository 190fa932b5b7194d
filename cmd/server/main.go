package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shoplocal-backend/internal/api"
	"shoplocal-backend/internal/config"
	"shoplocal-backend/internal/crm"
	"shoplocal-backend/internal/directory"
	"shoplocal-backend/internal/handlers"
	"shoplocal-backend/internal/interpreter"
	"shoplocal-backend/internal/services"
	"shoplocal-backend/internal/store"
	"shoplocal-backend/internal/store/memory"
	"shoplocal-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.Println("Starting Shop Local Assistant backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Store (postgres when DATABASE_URL is set, memory otherwise)
	var sessionStore store.Store
	if cfg.DatabaseURL != "" {
		dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dbCancel()

		dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
		}
		defer dbpool.Close()

		if err := dbpool.Ping(dbCtx); err != nil {
			log.Fatalf("FATAL: Unable to ping database: %v\n", err)
		}

		sessionStore = postgres.NewPostgresStore(dbpool)
		log.Println("Postgres store initialized.")
	} else {
		sessionStore = memory.NewMemoryStore()
		log.Println("DATABASE_URL not set; in-memory store initialized.")
	}

	// 3. Initialize external collaborators
	externalClient := &http.Client{Timeout: cfg.ExternalTimeout}

	directoryService := directory.NewService(cfg.DirectoryURL, cfg.CacheTTL, externalClient)
	log.Println("Directory service initialized.")

	queryInterpreter := interpreter.NewOpenAIInterpreter(cfg.OpenAIKey, cfg.OpenAIModel)
	log.Println("Query interpreter initialized.")

	// --- CRM delivery channels ---
	crmRegistry := crm.NewRegistry()
	crmRegistry.Register(crm.ChannelWebhook, crm.NewWebhookNotifier(cfg.CRMWebhookURL, externalClient))
	if cfg.SlackBotToken != "" && cfg.SlackChannelID != "" {
		crmRegistry.Register(crm.ChannelSlack, crm.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannelID))
	}
	notifier := crm.NewService(crmRegistry, crm.ChannelWebhook)
	log.Println("CRM notifier initialized.")

	// 4. Initialize Services & Handlers
	conversationService := services.NewConversationService(sessionStore, directoryService, queryInterpreter, notifier)
	log.Println("ConversationService initialized.")

	sessionHandler := handlers.NewSessionHandlers(conversationService)
	log.Println("SessionHandlers initialized.")

	// 5. Start the idle sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sweeper := services.NewSweeper(sessionStore, conversationService, cfg.SweepInterval, cfg.IdleTimeout)
	sweeper.Start(sweepCtx)

	// 6. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		SessionHandler: sessionHandler,
		Config:         cfg,
	})
	log.Println("HTTP router configured.")

	// 7. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	sweepCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
		log.Fatal("Forcing shutdown due to error.")
	}

	log.Println("Server shutdown complete.")
}
