package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/collabhub-golang/internal/ai"
	"github.com/01moynul/collabhub-golang/internal/app"
	"github.com/01moynul/collabhub-golang/internal/auth"
	"github.com/01moynul/collabhub-golang/internal/config"
	"github.com/01moynul/collabhub-golang/internal/database"
	"github.com/01moynul/collabhub-golang/internal/email"
	"github.com/01moynul/collabhub-golang/internal/handlers"
	"github.com/01moynul/collabhub-golang/internal/logger"
	"github.com/01moynul/collabhub-golang/internal/queue"
	"github.com/01moynul/collabhub-golang/internal/routes"
)

func main() {
	// 0. --- Load Configuration (.env + environment) ---
	cfg, envLoaded := config.Load()

	logr, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logr.Sync()
	if !envLoaded {
		logr.Warn("could not find or load .env file, relying on system environment variables")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. --- Main Database Connection (Read/Write) + jobs ---
	core, err := app.Open(cfg, logr)
	if err != nil {
		logr.Fatal("failed to connect to primary database", zap.Error(err))
	}
	defer core.Close()

	// 2. --- Read-Only Connection + AI assistant (optional) ---
	var (
		dbReadOnly = core.DB
		aiService  *ai.AIService
	)
	if cfg.ReadOnlyDSN != "" {
		dbReadOnly, err = database.OpenDB(cfg.ReadOnlyDSN, logr.Named("readonly"))
		if err != nil {
			logr.Fatal("failed to connect to read-only database", zap.Error(err))
		}
		defer dbReadOnly.Close()
	}
	if cfg.GeminiAPIKey != "" {
		if cfg.ReadOnlyDSN == "" {
			logr.Warn("AI assistant disabled: DB_DSN_READONLY is required alongside GEMINI_API_KEY")
		} else {
			aiService, err = ai.NewAIService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, dbReadOnly, logr.Named("ai"))
			if err != nil {
				logr.Fatal("failed to initialize AI service", zap.Error(err))
			}
			defer aiService.Close()
		}
	}

	// 3. --- Email queue ---
	var q queue.Queue
	if cfg.AMQPURL != "" {
		q, err = queue.DialAMQP(cfg.AMQPURL, logr.Named("amqp"))
		if err != nil {
			logr.Fatal("failed to connect to message broker", zap.Error(err))
		}
	} else {
		q = queue.NewInMemoryQueue(logr.Named("queue"))
	}
	defer q.Close()

	mailer := email.NewDispatcher(q, logr.Named("email"))
	if err := mailer.Start(email.LogSender{Log: logr.Named("email"), ShowBody: cfg.Env == "development"}); err != nil {
		logr.Fatal("failed to start email consumer", zap.Error(err))
	}

	// 4. --- Tokens ---
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logr.Fatal("invalid JWT configuration", zap.Error(err))
	}

	// --- Application Setup ---
	h := &handlers.Handlers{
		DB:          core.DB,
		DBReadOnly:  dbReadOnly,
		Tokens:      tokens,
		Mailer:      mailer,
		Social:      core.Social,
		Connections: core.Connections,
		Jobs:        core.Jobs,
		AIService:   aiService,
		Config:      cfg,
		Log:         logr,
	}

	// --- 5. Background Jobs ---
	go core.Jobs.Schedule(ctx, cfg.JobInterval)
	logr.Info("background jobs scheduled", zap.Duration("interval", cfg.JobInterval))

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("starting CollabHub API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
