// API Server для Kubernetes - читає конфігурацію зі змінних середовища
package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	"bizsite-api/internal/config"
)

func main() {
	cfg := loadConfigFromEnv()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := config.StartServer(cfg); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func loadConfigFromEnv() *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         getEnv("HOST", "0.0.0.0"),
			Port:         getEnvInt("PORT", 8080),
			Environment:  getEnv("MODE", "production"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			LogFormat:    getEnv("LOG_FORMAT", "json"),
			ReadTimeout:  getEnv("READ_TIMEOUT", "30s"),
			WriteTimeout: getEnv("WRITE_TIMEOUT", "30s"),
			IdleTimeout:  getEnv("IDLE_TIMEOUT", "120s"),
		},

		Database: config.DatabaseConfig{
			Driver:                getEnv("DB_DRIVER", config.DriverPostgres),
			Host:                  getEnv("DB_HOST", "postgres-service"),
			Port:                  getEnvInt("DB_PORT", 5432),
			Name:                  getEnv("DB_NAME", "bizsite"),
			User:                  getEnv("DB_USER", "bizsite"),
			Password:              getEnv("DB_PASSWORD", ""),
			SSLMode:               getEnv("DB_SSL_MODE", "disable"),
			Path:                  getEnv("DB_PATH", ""),
			MaxOpenConnections:    10,
			MaxIdleConnections:    5,
			ConnectionMaxLifetime: getEnv("DB_CONN_MAX_LIFETIME", "5m"),
		},

		Auth: config.AuthConfig{
			JWTSecret:                     os.Getenv("JWT_SECRET"),
			RefreshSecret:                 os.Getenv("REFRESH_SECRET"),
			Issuer:                        getEnv("JWT_ISSUER", "bizsite-api"),
			AccessTokenDuration:           getEnv("ACCESS_TOKEN_DURATION", "15m"),
			RefreshTokenDuration:          getEnv("REFRESH_TOKEN_DURATION", "7d"),
			FederatedRefreshTokenDuration: getEnv("FEDERATED_REFRESH_TOKEN_DURATION", "1h"),
			SessionIdleTimeout:            getEnv("SESSION_IDLE_TIMEOUT", "24h"),
		},

		Security: config.SecurityConfig{
			CORS: config.CORSConfig{
				AllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{
					"Content-Type",
					"Authorization",
					"X-Requested-With",
					"Accept",
					"Origin",
					"Access-Control-Request-Method",
					"Access-Control-Request-Headers",
				},
				AllowCredentials: true,
				MaxAge:           3600,
			},
			RateLimit: config.RateLimitConfig{
				Enabled:  getEnv("RATE_LIMIT_ENABLED", "true") == "true",
				Requests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
				Window:   getEnv("RATE_LIMIT_WINDOW", "15m"),
				Burst:    getEnvInt("RATE_LIMIT_BURST", 100),
			},
			Cookie: config.CookieConfig{
				Name:   "refreshToken",
				Domain: getEnv("COOKIE_DOMAIN", ""),
				Secure: getEnv("COOKIE_SECURE", "true") == "true",
			},
		},
	}

	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		cfg.Google = &config.GoogleConfig{ClientID: clientID}
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Redis = &config.RedisConfig{
			Enabled:    true,
			Host:       host,
			Port:       getEnvInt("REDIS_PORT", 6379),
			Password:   os.Getenv("REDIS_PASSWORD"),
			Database:   getEnvInt("REDIS_DB", 0),
			MaxRetries: 3,
			PoolSize:   10,
		}
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
