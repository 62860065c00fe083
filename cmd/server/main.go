package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizsuite/backend/internal/application/access"
	appcontact "github.com/bizsuite/backend/internal/application/contact"
	"github.com/bizsuite/backend/internal/application/extensions"
	"github.com/bizsuite/backend/internal/application/tenancy"
	"github.com/bizsuite/backend/internal/domain/contacts"
	"github.com/bizsuite/backend/internal/domain/extension"
	"github.com/bizsuite/backend/internal/infrastructure/auth"
	"github.com/bizsuite/backend/internal/infrastructure/cache"
	"github.com/bizsuite/backend/internal/infrastructure/config"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
	"github.com/bizsuite/backend/internal/infrastructure/persistence"
	"github.com/bizsuite/backend/internal/infrastructure/plugin"
	"github.com/bizsuite/backend/internal/infrastructure/sessionctx"
	"github.com/bizsuite/backend/internal/infrastructure/telemetry"
	"github.com/bizsuite/backend/internal/interfaces/http/handler"
	"github.com/bizsuite/backend/internal/interfaces/http/middleware"
	"github.com/bizsuite/backend/internal/interfaces/http/router"
)

const serverVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("row_policy_enabled", cfg.Database.RowPolicyEnabled),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	tokenBlacklist, err := auth.NewRedisTokenBlacklist(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to redis for token blacklist", zap.Error(err))
	}
	defer func() {
		if err := tokenBlacklist.Close(); err != nil {
			log.Error("Error closing token blacklist", zap.Error(err))
		}
	}()

	registryInvalidator, err := cache.NewRedisRegistryInvalidator(cfg.Redis,
		cache.WithRegistryInvalidatorLogger(log),
	)
	if err != nil {
		log.Fatal("Failed to connect to redis for registry invalidation", zap.Error(err))
	}
	defer func() {
		if err := registryInvalidator.Close(); err != nil {
			log.Error("Error closing registry invalidator", zap.Error(err))
		}
	}()

	// Extension registry. A contract that fails validation keeps the
	// process from serving at all rather than surfacing broken
	// descriptors at request time.
	registry := extension.NewRegistry()
	if err := registry.RegisterTarget(contacts.EntityContact); err != nil {
		log.Fatal("Failed to register extension target", zap.Error(err))
	}
	if err := registry.Register(plugin.NewCreditControlPlugin(db.DB)); err != nil {
		log.Fatal("Failed to register extension contract", zap.Error(err))
	}
	if err := registry.Build(); err != nil {
		log.Fatal("Extension registry validation failed, refusing to serve", zap.Error(err))
	}
	log.Info("Extension registry built",
		zap.Strings("targets", registry.Targets()),
		zap.Int64("version", registry.Version()),
	)

	err = registryInvalidator.Subscribe(context.Background(), func(msg cache.RegistryUpdateMessage) {
		if err := registry.Rebuild(); err != nil {
			log.Error("Registry rebuild from broadcast failed",
				zap.String("module", msg.Module),
				zap.Error(err),
			)
			return
		}
		log.Info("Registry rebuilt from broadcast",
			zap.String("module", msg.Module),
			zap.Int64("version", registry.Version()),
		)
	})
	if err != nil {
		log.Fatal("Failed to subscribe to registry invalidation channel", zap.Error(err))
	}

	propagator := sessionctx.NewPropagator(cfg.Database.RowPolicyEnabled)

	// Repositories
	contactRepo := persistence.NewGormContactRepository(db.DB, registry)
	groupRepo := persistence.NewGormGroupRepository(db.DB)
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)

	// Application services
	groupCache := cache.NewInMemoryGroupCache(cache.WithGroupCacheLogger(log))
	defer func() {
		_ = groupCache.Close()
	}()
	jwtService := auth.NewJWTService(cfg.JWT)
	permissionService := access.NewPermissionService(groupRepo, groupCache, log)
	recordAccess := access.NewRecordAccessChecker(orgRepo, log)
	groupService := access.NewGroupService(groupRepo, groupCache, log)
	organizationService := tenancy.NewOrganizationService(orgRepo, log)
	contactService := appcontact.NewContactService(contactRepo, registry, recordAccess, log)
	registryService := extensions.NewRegistryService(registry, registryInvalidator, log)

	// HTTP handlers
	contactHandler := handler.NewContactHandler(contactService, permissionService)
	extensionHandler := handler.NewExtensionHandler(registryService)
	groupHandler := handler.NewGroupHandler(groupService)
	organizationHandler := handler.NewOrganizationHandler(organizationService)
	systemHandler := handler.NewSystemHandler(db, registry, propagator, serverVersion)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.New(router.Config{
		Logger:     log,
		JWTService: jwtService,
		Blacklist:  tokenBlacklist,
		Propagator: propagator,
		DB:         db.DB,
		CORS: middleware.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		},
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     cfg.Telemetry.Enabled,
	})

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := r.Engine().SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	r.Register(contactHandler).
		Register(extensionHandler).
		Register(groupHandler).
		Register(organizationHandler).
		Register(systemHandler)
	r.Setup()

	systemHandler.RegisterRootRoutes(r.Engine())

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r.Engine(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if failures := propagator.TeardownFailures(); failures > 0 {
		log.Warn("Session context teardown failures observed during run",
			zap.Int64("count", failures),
		)
	}

	log.Info("Server exited gracefully")
}
