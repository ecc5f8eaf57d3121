package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/money-dashboard/internal/analysis"
	"github.com/Dan9191/money-dashboard/internal/auth"
	"github.com/Dan9191/money-dashboard/internal/config"
	"github.com/Dan9191/money-dashboard/internal/handler"
	"github.com/Dan9191/money-dashboard/internal/integrations/plaid"
	"github.com/Dan9191/money-dashboard/internal/kvstore"
	"github.com/Dan9191/money-dashboard/internal/metrics"
	"github.com/Dan9191/money-dashboard/internal/middleware"
	"github.com/Dan9191/money-dashboard/internal/repository"
	"github.com/Dan9191/money-dashboard/internal/scheduler"
	"github.com/Dan9191/money-dashboard/internal/service"
	"github.com/Dan9191/money-dashboard/internal/utils"
	"github.com/Dan9191/money-dashboard/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	store := kvstore.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Integrations
	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		logger.Fatalf("Invalid encryption key: %v", err)
	}
	cipher, err := utils.NewCipher(key)
	if err != nil {
		logger.Fatalf("Failed to create cipher: %v", err)
	}

	deps := service.Dependencies{
		Tokens:   auth.NewTokens(cfg.JWTSecret),
		Cipher:   cipher,
		Notifier: email.NewSender(cfg, logger),
	}
	if cfg.PlaidClientID != "" {
		deps.Bank = plaid.NewClient(cfg, logger)
	} else {
		logger.Warn("PLAID_CLIENT_ID not set, bank integration disabled")
	}
	if cfg.GeminiAPIKey != "" {
		gen, err := analysis.NewGeminiGenerator(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to create Gemini client: %v", err)
		}
		deps.Analyzer = analysis.NewAnalyzer(gen, logger)
	} else {
		logger.Warn("GEMINI_API_KEY not set, AI analysis disabled")
	}

	// Initialize layers
	repo := repository.NewRepository(store)
	svc := service.NewService(repo, logger, cfg, deps)
	h := handler.NewHandler(svc, cfg, logger)

	jobs, err := scheduler.New(cfg, svc, logger)
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.Metrics(metrics.NewMetrics()))
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	h.Routes(r)

	var root http.Handler = r
	root = middleware.Recovery(logger)(root)
	root = middleware.Logger(logger)(root)
	root = middleware.RequestID(root)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	jobs.Start()
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	jobs.Stop(shutdownCtx)
	svc.Wait()
	logger.Info("Server stopped")
}
