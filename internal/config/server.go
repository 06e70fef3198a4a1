package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bizsite-api/docs"
	"bizsite-api/internal/build"
	"bizsite-api/internal/handlers"
	"bizsite-api/internal/metrics"
	"bizsite-api/internal/middleware"
	"bizsite-api/internal/models"
	"bizsite-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

const serviceName = "bizsite-api"

// Dependencies зовнішні залежності роутера. Users та Store обов'язкові.
type Dependencies struct {
	Users        services.UserService
	Store        services.KeyValueStore
	Verifier     services.IdentityVerifier
	Metrics      *metrics.Metrics
	HealthChecks map[string]handlers.HealthCheck
}

// StartServer запускає HTTP сервер з конфігурацією
func StartServer(cfg *Config) error {
	setupLogging(cfg)

	db, err := OpenDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(context.Background(), cfg, db); err != nil {
		return err
	}

	store, closeStore, err := openSessionStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	verifier, err := newIdentityVerifier(cfg)
	if err != nil {
		return err
	}

	deps := Dependencies{
		Users:    services.NewUserService(db),
		Store:    store,
		Verifier: verifier,
		Metrics:  metrics.New(),
		HealthChecks: map[string]handlers.HealthCheck{
			"database":      databaseCheck(db),
			"session_store": storeCheck(store),
		},
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r, err := NewRouter(cfg, deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.GetAddress(),
		Handler:      r,
		ReadTimeout:  mustDuration(cfg.Server.ReadTimeout, 30*time.Second),
		WriteTimeout: mustDuration(cfg.Server.WriteTimeout, 30*time.Second),
		IdleTimeout:  mustDuration(cfg.Server.IdleTimeout, 120*time.Second),
	}

	// Канал для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("🚀 Starting %s on %s", serviceName, cfg.GetAddress())
		logrus.Infof("Build: %s", build.Summary())
		logrus.Infof("Environment: %s", cfg.Server.Environment)
		logrus.Infof("Log Level: %s", cfg.Server.LogLevel)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	logrus.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logrus.Info("✅ Server exited gracefully")
	return nil
}

// NewRouter збирає сервіси та реєструє маршрути
func NewRouter(cfg *Config, deps Dependencies) (*gin.Engine, error) {
	tokenIssuer, err := services.NewTokenIssuer(cfg.TokenConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	sessionManager := services.NewSessionManager(deps.Store, cfg.SessionIdleTimeout())
	authService := services.NewAuthService(deps.Users, tokenIssuer, sessionManager, deps.Verifier, cfg.AuthOptions())

	authHandler := handlers.NewAuthHandler(authService, cfg.CookieOptions(), deps.Metrics)
	userHandler := handlers.NewUserHandler(deps.Users)
	healthHandler := handlers.NewHealthHandler(serviceName, build.Version, deps.HealthChecks)

	r := gin.New()

	docs.SwaggerInfo.Version = build.Version
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg))
	if cfg.Security.RateLimit.Enabled {
		window := mustDuration(cfg.Security.RateLimit.Window, 15*time.Minute)
		r.Use(middleware.RateLimit(cfg.Security.RateLimit.Requests, window, cfg.Security.RateLimit.Burst))
	}

	r.GET("/health", healthHandler.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/oauth-login", authHandler.OAuthLogin)
		auth.POST("/refresh", authHandler.Refresh)
		// logout сам перевіряє bearer token, навіть прострочений
		auth.POST("/logout", authHandler.Logout)
	}

	users := r.Group("/api/users")
	{
		users.POST("/register", userHandler.Register)
		users.POST("/forgot-password", userHandler.ForgotPassword)

		protected := users.Group("")
		protected.Use(middleware.AuthMiddleware(tokenIssuer, sessionManager, deps.Metrics))
		{
			protected.GET("", middleware.RequireRole(models.RoleAdmin), userHandler.List)
			protected.GET("/me", userHandler.Me)
			protected.GET("/:id", middleware.RequireSelfOrAdmin("id"), userHandler.Get)
			protected.PUT("/:id", middleware.RequireSelfOrAdmin("id"), userHandler.Update)
			protected.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), userHandler.Delete)
		}
	}

	return r, nil
}

// setupLogging налаштовує логування
func setupLogging(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logrus.Warnf("Invalid log level '%s', using info", cfg.Server.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Server.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// openSessionStore обирає Redis або сховище в пам'яті процесу
func openSessionStore(cfg *Config) (services.KeyValueStore, func(), error) {
	if cfg.Redis == nil || !cfg.Redis.Enabled {
		logrus.Warn("Redis disabled, sessions are kept in process memory")
		return services.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:       fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.Database,
		MaxRetries: cfg.Redis.MaxRetries,
		PoolSize:   cfg.Redis.PoolSize,
	})
	store := services.NewRedisStore(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logrus.Infof("🔌 Connected to Redis at %s:%d", cfg.Redis.Host, cfg.Redis.Port)
	return store, func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
	}, nil
}

// newIdentityVerifier створює Google verifier, якщо налаштовано блок google
func newIdentityVerifier(cfg *Config) (services.IdentityVerifier, error) {
	if cfg.Google == nil || cfg.Google.ClientID == "" {
		logrus.Info("Google login disabled")
		return nil, nil
	}

	jwksURL := cfg.Google.JWKSURL
	if jwksURL == "" {
		jwksURL = services.GoogleJWKSURL
	}
	jwks, err := services.NewRemoteJWKS(jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load google jwks: %w", err)
	}

	return services.NewGoogleIdentityVerifier(services.GoogleVerifierConfig{
		ClientID: cfg.Google.ClientID,
	}, jwks.Keyfunc), nil
}

func databaseCheck(db *gorm.DB) handlers.HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func storeCheck(store services.KeyValueStore) handlers.HealthCheck {
	return func(ctx context.Context) error {
		if pinger, ok := store.(services.Pinger); ok {
			return pinger.Ping(ctx)
		}
		return nil
	}
}

// corsMiddleware налаштовує CORS middleware
func corsMiddleware(cfg *Config) gin.HandlerFunc {
	cors := cfg.Security.CORS
	return gin.HandlerFunc(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if isAllowedOrigin(origin, cors.AllowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", strings.Join(cors.AllowedMethods, ", "))
		c.Header("Access-Control-Allow-Headers", strings.Join(cors.AllowedHeaders, ", "))

		// refresh cookie потребує credentials
		if cors.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if cors.MaxAge > 0 {
			c.Header("Access-Control-Max-Age", fmt.Sprintf("%d", cors.MaxAge))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})
}

func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
