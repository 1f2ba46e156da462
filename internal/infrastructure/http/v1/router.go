// Package v1 wires the HTTP API surface of the organisation registry.
package v1

import (
	"github.com/gin-gonic/gin"

	"orgregistry/internal/domain/registry"
	"orgregistry/internal/infrastructure/http/v1/handlers"
	"orgregistry/internal/infrastructure/http/v1/middleware"
	"orgregistry/internal/infrastructure/storage/postgres"
	"orgregistry/pkg/logger"
)

// Permission claims checked by the API. Admin tokens hold all of them
// implicitly.
const (
	PermRegistryCreate = "registry:create"
	PermRegistryRead   = "registry:read"
	PermRegistryUpdate = "registry:update"
	PermRegistryDelete = "registry:delete"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger       *logger.Logger
	Pool         *postgres.Pool
	JWTValidator middleware.JWTValidator
	Registry     *registry.Service
	Audit        *postgres.AuditService
	Development  bool
}

// NewRouter builds the gin engine with the full middleware chain and
// all registry routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order matters: recovery outermost, then tracing so every log line
	// carries IDs, then request logging, then the single error renderer.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	health := handlers.NewHealthHandler(cfg.Pool)
	router.GET("/health/live", health.Live)
	router.GET("/health/ready", health.Ready)
	router.GET("/health/info", health.Info)

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	api.Use(middleware.ActorContext())

	orgs := handlers.NewOrganisationHandler(cfg.Registry, cfg.Audit)

	group := api.Group("/organisations")
	{
		group.POST("", middleware.RequirePermission(PermRegistryCreate), orgs.Create)
		group.GET("", middleware.RequirePermission(PermRegistryRead), orgs.List)
		group.GET("/:id", middleware.RequirePermission(PermRegistryRead), orgs.Get)
		group.PUT("/:id", middleware.RequirePermission(PermRegistryUpdate), orgs.Update)
		group.POST("/:id/deactivate", middleware.RequirePermission(PermRegistryDelete), orgs.Deactivate)
		group.POST("/:id/status", middleware.RequirePermission(PermRegistryUpdate), orgs.ChangeStatus)
		group.GET("/:id/history", middleware.RequirePermission(PermRegistryRead), orgs.History)
	}

	return router
}
