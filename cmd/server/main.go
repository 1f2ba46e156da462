// Package main is the entry point for the organisation registry API server.
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

	"orgregistry/internal/auth"
	"orgregistry/internal/domain/registry"
	v1 "orgregistry/internal/infrastructure/http/v1"
	"orgregistry/internal/infrastructure/storage/postgres"
	"orgregistry/internal/infrastructure/storage/postgres/registry_repo"
	"orgregistry/pkg/logger"
)

func main() {
	development := getEnv("APP_ENV", "development") == "development"

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting organisation registry server")

	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	poolCfg.MaxConns = int32(getEnvInt("DB_MAX_CONNS", int(poolCfg.MaxConns)))
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	orgRepo := registry_repo.NewOrganisationRepo(txManager)
	refRepo := registry_repo.NewReferenceRepo(txManager)
	checker := registry.NewChecker(orgRepo, getEnvInt("REGISTRY_MAX_PARENT_DEPTH", registry.DefaultMaxParentDepth))

	outbox := postgres.NewOutboxPublisher(txManager)
	events := registry_repo.NewOutboxEventPublisher(outbox)

	audit, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	service := registry.NewService(orgRepo, refRepo, checker, txManager, events, audit)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret:         mustEnv("JWT_SECRET"),
		Issuer:         getEnv("JWT_ISSUER", "orgregistry"),
		AccessTokenTTL: getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
	})

	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		Pool:         pool,
		JWTValidator: jwtService,
		Registry:     service,
		Audit:        audit,
		Development:  development,
	})

	srv := &http.Server{
		Addr:              ":" + getEnv("HTTP_PORT", "8080"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
