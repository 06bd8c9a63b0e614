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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cityconnect-be/backend"
	"cityconnect-be/config"
	"cityconnect-be/controllers"
	"cityconnect-be/metrics"
	"cityconnect-be/middlewares"
	"cityconnect-be/routes"
	"cityconnect-be/services"
	authUtils "cityconnect-be/utils"
	"cityconnect-be/views"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	binding, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open backend", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := binding.Close(closeCtx); err != nil {
			logger.Warn("closing backend failed", zap.Error(err))
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := setupRouter(cfg, binding, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("mode", cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// setupRouter builds the services, views and controllers over binding and
// mounts them on a new engine.
func setupRouter(cfg *config.Config, binding *backend.Binding, logger *zap.Logger) *gin.Engine {
	tokens := authUtils.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	authService := services.NewAuthService(binding.Identities, binding.Users, binding.Sessions, tokens, logger)
	authService.AllowPrivilegedSignup(cfg.BootstrapAdminEmails()...)
	issueService := services.NewIssueService(binding.Issues, binding.Feed, cfg.StatusPolicy(), logger)
	userService := services.NewUserService(binding.Users, logger)
	storageService := services.NewStorageService(binding.Objects, cfg.PublicBaseURL, logger)
	settingsService := services.NewSettingsService(binding.Settings, binding.Feed, logger)

	landing := views.NewLandingView(settingsService, logger)
	dashboard := views.NewDashboardView(issueService, logger)
	shell := views.NewShellView(authService, userService, landing, dashboard, logger)

	var limiter middlewares.Limiter = middlewares.NewMemoryLimiter()
	if binding.Redis != nil {
		limiter = middlewares.NewRedisLimiter(binding.Redis, cfg.MessagingSenderID)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(logger))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins())))

	if cfg.AnalyticsEnabled() {
		metrics.Init(cfg.MeasurementID)
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	routes.Register(r, routes.Handlers{
		Auth:     controllers.NewAuthController(authService, shell, controllers.CookieOptions{Domain: cfg.CookieDomain(), Secure: cfg.IsProduction()}),
		Issues:   controllers.NewIssueController(issueService, userService),
		Stream:   controllers.NewStreamController(issueService, cfg.AllowedOrigins(), logger),
		Users:    controllers.NewUserController(userService),
		Files:    controllers.NewFileController(storageService),
		Settings: controllers.NewSettingsController(settingsService),
		App:      controllers.NewAppController(shell, landing, dashboard),
	}, routes.Guards{
		Sessions:        authService,
		Profiles:        userService,
		Limiter:         limiter,
		IssueDailyLimit: cfg.IssueDailyLimit,
		APIKey:          cfg.APIKey,
		Logger:          logger,
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Api-Key"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowOrigins = nil
		c.AllowAllOrigins = true
	}
	return c
}
