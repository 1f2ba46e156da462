// Package main is the entry point for the registry background worker.
// It relays committed registry events from the transactional outbox to
// downstream consumers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"orgregistry/internal/infrastructure/storage/postgres"
	"orgregistry/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting registry outbox worker")

	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	relay := postgres.NewOutboxRelay(
		pool.Unwrap(),
		getEnvInt("OUTBOX_BATCH_SIZE", 100),
		&logHandler{log: log.WithComponent("outbox")},
	)

	interval := getEnvDuration("OUTBOX_POLL_INTERVAL", 5*time.Second)
	retention := getEnvDuration("OUTBOX_RETENTION", 7*24*time.Hour)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		run(ctx, log, relay, interval, retention)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// run polls the outbox until the context is cancelled. Published
// messages past the retention window are purged once an hour.
func run(ctx context.Context, log *logger.Logger, relay *postgres.OutboxRelay, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	purgeTicker := time.NewTicker(time.Hour)
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := relay.ProcessBatch(ctx)
			if err != nil {
				log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				log.Infow("outbox batch processed", "count", processed)
			}
		case <-purgeTicker.C:
			purged, err := relay.PurgePublished(ctx, retention)
			if err != nil {
				log.Errorw("outbox purge failed", "error", err)
				continue
			}
			if purged > 0 {
				log.Infow("outbox purged", "count", purged)
			}
		}
	}
}

// logHandler publishes events to the log stream. Deployments with a
// message broker replace this with a broker-backed handler.
type logHandler struct {
	log *logger.Logger
}

func (h *logHandler) Handle(_ context.Context, msg *postgres.OutboxMessage) error {
	h.log.Infow("registry event",
		"event_type", msg.EventType,
		"aggregate_id", msg.AggregateID,
		"payload", string(msg.Payload),
	)
	return nil
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
