// Package router assembles the gin engine: middleware chain ordering and
// versioned route registration
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/infrastructure/auth"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
	"github.com/bizsuite/backend/internal/infrastructure/sessionctx"
	"github.com/bizsuite/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar registers a handler's routes on the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config gathers everything the middleware chain needs
type Config struct {
	Logger      *zap.Logger
	JWTService  *auth.JWTService
	Blacklist   auth.TokenBlacklist
	Propagator  *sessionctx.Propagator
	DB          *gorm.DB
	CORS        middleware.CORSConfig
	ServiceName string
	Tracing     bool
	APIVersion  string
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	cfg        Config
	registrars []RouteRegistrar
}

// New creates a router over a fresh gin engine
func New(cfg Config) *Router {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v1"
	}
	return &Router{
		engine: gin.New(),
		cfg:    cfg,
	}
}

// Register adds a RouteRegistrar to be mounted by Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Engine returns the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Setup installs the middleware chain and mounts every registrar under
// the versioned API group. Ordering is the contract: authentication
// resolves the principal, the security context brackets data access with
// its tenancy, and per-entity access checks run inside that bracket.
func (r *Router) Setup() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(logger.GinMiddleware(r.cfg.Logger))
	r.engine.Use(logger.Recovery(r.cfg.Logger))
	r.engine.Use(middleware.Tracing(r.cfg.ServiceName, r.cfg.Tracing))
	r.engine.Use(middleware.CORSWithConfig(r.cfg.CORS))

	api := r.engine.Group("/api/" + r.cfg.APIVersion)
	api.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     r.cfg.JWTService,
		TokenBlacklist: r.cfg.Blacklist,
		SkipPaths:      []string{"/api/" + r.cfg.APIVersion + "/health"},
		Logger:         r.cfg.Logger,
	}))
	api.Use(middleware.SecurityContext(r.cfg.Propagator, r.cfg.DB))

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}
