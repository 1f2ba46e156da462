// Package main provides a CLI tool for preparing a development database:
// it applies the schema and seeds a small organisation hierarchy.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"orgregistry/internal/auth"
	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/security"
	"orgregistry/internal/domain/registry"
	"orgregistry/internal/infrastructure/storage/postgres"
	"orgregistry/internal/infrastructure/storage/postgres/registry_repo"
	"orgregistry/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.EnsureSchema(ctx, pool.Unwrap()); err != nil {
		log.Fatalw("failed to apply schema", "error", err)
	}
	log.Info("schema applied")

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoOrganisations(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo organisations", "error", err)
		}
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		printDevToken(log, secret)
	}
}

// seedDemoOrganisations creates a small hierarchy through the service
// so every record passes the same validation as API writes.
func seedDemoOrganisations(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	txManager := postgres.NewTxManager(pool)
	orgRepo := registry_repo.NewOrganisationRepo(txManager)
	refRepo := registry_repo.NewReferenceRepo(txManager)
	checker := registry.NewChecker(orgRepo, 0)

	audit, err := postgres.NewAuditService(txManager)
	if err != nil {
		return err
	}

	events := registry_repo.NewOutboxEventPublisher(postgres.NewOutboxPublisher(txManager))
	service := registry.NewService(orgRepo, refRepo, checker, txManager, events, audit)

	ctx = security.WithActorID(ctx, "seed")

	root, err := service.CreateOrganisation(ctx, registry.CreateRequest{
		Name:    "United Nations Office for the Coordination of Humanitarian Affairs",
		Acronym: "OCHA",
		OrgType: "un",
	})
	if err != nil {
		if apperror.IsIntegrity(err) || apperror.IsConflict(err) {
			log.Info("demo data already present, skipping")
			return nil
		}
		return err
	}

	rootID := root.ID
	children := []registry.CreateRequest{
		{Name: "OCHA Regional Office for Southern Africa", Acronym: "ROSA", OrgType: "un", ParentID: &rootID},
		{Name: "OCHA Regional Office for West Africa", Acronym: "ROWA", OrgType: "un", ParentID: &rootID},
	}
	for _, req := range children {
		if _, err := service.CreateOrganisation(ctx, req); err != nil {
			return err
		}
	}

	standalone := []registry.CreateRequest{
		{Name: "National Disaster Management Agency", Acronym: "NDMA", OrgType: "government"},
		{Name: "Relief Logistics Partners", OrgType: "ngo"},
	}
	for _, req := range standalone {
		if _, err := service.CreateOrganisation(ctx, req); err != nil {
			return err
		}
	}

	log.Info("demo organisations created")
	return nil
}

// printDevToken generates an admin token for local API testing.
func printDevToken(log *logger.Logger, secret string) {
	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret:         secret,
		Issuer:         "orgregistry",
		AccessTokenTTL: 24 * time.Hour,
	})

	token, expiresAt, err := jwtService.GenerateAccessToken(
		"dev-admin", "admin@example.org", []string{"admin"}, nil, true,
	)
	if err != nil {
		log.Fatalw("failed to generate dev token", "error", err)
	}

	log.Infow("dev token generated", "expires_at", expiresAt)
	fmt.Println(token)
}
