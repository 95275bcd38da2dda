package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"peerloop/api/internal/api/handlers"
	"peerloop/api/internal/api/middleware"
	"peerloop/api/internal/api/router"
	"peerloop/api/internal/config"
	"peerloop/api/internal/core/services"
	"peerloop/api/internal/db/postgres"
	"peerloop/api/internal/infrastructure/crypto"
	"peerloop/api/internal/telemetry"
)

func main() {
	// --- 1. Core Telemetry & Configuration ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	cfg := config.Load()

	// --- 2. Outbound Infrastructure ---
	dbPool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("FATAL: DB failed", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// The audit repo speaks sqlx over the stdlib pgx driver.
	auditDB, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("FATAL: audit DB failed", "error", err)
		os.Exit(1)
	}
	defer auditDB.Close()

	cipherProvider, err := crypto.NewProvider(cfg.EncryptionKey)
	if err != nil {
		logger.Error("FATAL: crypto init failed", "error", err)
		os.Exit(1)
	}

	// --- 3. Dependency Injection ---
	evalRepo := postgres.NewEvaluationRepo(dbPool)
	memberRepo := postgres.NewMemberRepo(dbPool)
	responseRepo := postgres.NewResponseRepo(dbPool)
	auditRepo := postgres.NewAuditRepo(auditDB)

	hub := telemetry.NewHub()
	gate := services.NewManagerGate(evalRepo, cipherProvider)
	tokens := services.NewTokenService(cfg.JWTSecret)

	evalService := services.NewEvaluationService(evalRepo, auditRepo, cipherProvider, gate, logger)
	memberService := services.NewMemberService(memberRepo, auditRepo, cipherProvider, gate, tokens, logger)
	responseService := services.NewResponseService(responseRepo, memberRepo, auditRepo, cipherProvider, hub, logger)
	resultsService := services.NewResultsService(responseRepo, memberService, auditRepo, cipherProvider, gate, logger)

	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins:    cfg.AllowedOrigins,
		EvaluationHandler: handlers.NewEvaluationHandler(evalService, resultsService),
		MemberHandler:     handlers.NewMemberHandler(memberService),
		ResponseHandler:   handlers.NewResponseHandler(responseService),
		ProgressHandler:   handlers.NewProgressHandler(hub, responseService, gate, logger),
		AuthMiddleware:    middleware.NewAuthMiddleware(tokens, logger),
		Logger:            logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// --- 4. Graceful Exit ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("peerloop API active", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("CRITICAL: Server crashed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ERROR: Forced shutdown", "error", err)
	}
	logger.Info("peerloop API shutdown complete")
}
