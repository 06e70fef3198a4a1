package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"bizsite-api/internal/handlers"
	"bizsite-api/internal/services"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Config представляє повну конфігурацію додатку
type Config struct {
	Server   ServerConfig   `hcl:"server,block"`
	Database DatabaseConfig `hcl:"database,block"`
	Auth     AuthConfig     `hcl:"auth,block"`
	Google   *GoogleConfig  `hcl:"google,block"`
	Security SecurityConfig `hcl:"security,block"`
	Redis    *RedisConfig   `hcl:"redis,block"`
}

// ServerConfig містить налаштування HTTP сервера
type ServerConfig struct {
	Host         string `hcl:"host,optional"`
	Port         int    `hcl:"port"`
	Environment  string `hcl:"environment,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	LogFormat    string `hcl:"log_format,optional"`
	ReadTimeout  string `hcl:"read_timeout,optional"`
	WriteTimeout string `hcl:"write_timeout,optional"`
	IdleTimeout  string `hcl:"idle_timeout,optional"`
}

// DatabaseConfig містить налаштування бази даних.
// Driver "postgres" (за замовчуванням) або "sqlite" для локального запуску.
type DatabaseConfig struct {
	Driver                string `hcl:"driver,optional"`
	Host                  string `hcl:"host,optional"`
	Port                  int    `hcl:"port,optional"`
	Name                  string `hcl:"name,optional"`
	User                  string `hcl:"user,optional"`
	Password              string `hcl:"password,optional"`
	SSLMode               string `hcl:"ssl_mode,optional"`
	Path                  string `hcl:"path,optional"`
	MaxOpenConnections    int    `hcl:"max_open_connections,optional"`
	MaxIdleConnections    int    `hcl:"max_idle_connections,optional"`
	ConnectionMaxLifetime string `hcl:"connection_max_lifetime,optional"`
}

// AuthConfig містить секрети та строки дії токенів і сесій
type AuthConfig struct {
	JWTSecret                     string `hcl:"jwt_secret"`
	RefreshSecret                 string `hcl:"refresh_secret"`
	Issuer                        string `hcl:"issuer,optional"`
	AccessTokenDuration           string `hcl:"access_token_duration,optional"`
	RefreshTokenDuration          string `hcl:"refresh_token_duration,optional"`
	FederatedRefreshTokenDuration string `hcl:"federated_refresh_token_duration,optional"`
	SessionIdleTimeout            string `hcl:"session_idle_timeout,optional"`
}

// GoogleConfig налаштування федеративного входу через Google
type GoogleConfig struct {
	ClientID string `hcl:"client_id"`
	JWKSURL  string `hcl:"jwks_url,optional"`
}

// SecurityConfig містить налаштування безпеки
type SecurityConfig struct {
	CORS      CORSConfig      `hcl:"cors,block"`
	RateLimit RateLimitConfig `hcl:"rate_limit,block"`
	Cookie    CookieConfig    `hcl:"cookie,block"`
}

// CORSConfig містить налаштування CORS
type CORSConfig struct {
	AllowedOrigins   []string `hcl:"allowed_origins,optional"`
	AllowedMethods   []string `hcl:"allowed_methods,optional"`
	AllowedHeaders   []string `hcl:"allowed_headers,optional"`
	AllowCredentials bool     `hcl:"allow_credentials,optional"`
	MaxAge           int      `hcl:"max_age,optional"`
}

// RateLimitConfig глобальний ліміт: requests запитів за window
type RateLimitConfig struct {
	Enabled  bool   `hcl:"enabled"`
	Requests int    `hcl:"requests,optional"`
	Window   string `hcl:"window,optional"`
	Burst    int    `hcl:"burst,optional"`
}

// CookieConfig атрибути refresh cookie
type CookieConfig struct {
	Name   string `hcl:"name,optional"`
	Domain string `hcl:"domain,optional"`
	Secure bool   `hcl:"secure"`
}

// RedisConfig містить налаштування Redis. Без блоку redis сесії живуть у пам'яті процесу.
type RedisConfig struct {
	Enabled    bool   `hcl:"enabled"`
	Host       string `hcl:"host,optional"`
	Port       int    `hcl:"port,optional"`
	Password   string `hcl:"password,optional"`
	Database   int    `hcl:"database,optional"`
	MaxRetries int    `hcl:"max_retries,optional"`
	PoolSize   int    `hcl:"pool_size,optional"`
}

// LoadConfig завантажує конфігурацію з HCL файлу
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var config Config
	if err := hclsimple.DecodeFile(configPath, evalContext(), &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// evalContext додає функцію env(name, default) для читання секретів з оточення
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}
}

var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	VarParam: &function.Parameter{Name: "default", Type: cty.String},
	Type:     function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if value := os.Getenv(args[0].AsString()); value != "" {
			return cty.StringVal(value), nil
		}
		if len(args) > 1 {
			return args[1], nil
		}
		return cty.StringVal(""), nil
	},
})

// applyDefaults заповнює необов'язкові поля
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Security.RateLimit.Requests == 0 {
		c.Security.RateLimit.Requests = 100
	}
	if c.Security.RateLimit.Window == "" {
		c.Security.RateLimit.Window = "15m"
	}
	if c.Security.Cookie.Name == "" {
		c.Security.Cookie.Name = handlers.DefaultRefreshCookieName
	}
	if c.Redis != nil && c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
}

// Validate перевіряє валідність конфігурації
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	// Секрети access та refresh токенів обов'язкові і мають відрізнятися
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required")
	}
	if c.Auth.RefreshSecret == "" {
		return fmt.Errorf("auth refresh_secret is required")
	}
	if c.Auth.JWTSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("auth jwt_secret and refresh_secret must differ")
	}

	durations := map[string]string{
		"auth.access_token_duration":            c.Auth.AccessTokenDuration,
		"auth.refresh_token_duration":           c.Auth.RefreshTokenDuration,
		"auth.federated_refresh_token_duration": c.Auth.FederatedRefreshTokenDuration,
		"auth.session_idle_timeout":             c.Auth.SessionIdleTimeout,
		"security.rate_limit.window":            c.Security.RateLimit.Window,
		"server.read_timeout":                   c.Server.ReadTimeout,
		"server.write_timeout":                  c.Server.WriteTimeout,
		"server.idle_timeout":                   c.Server.IdleTimeout,
		"database.connection_max_lifetime":      c.Database.ConnectionMaxLifetime,
	}
	var errs []error
	for name, value := range durations {
		if _, err := durationOr(value, 0); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.Requests < 0 {
		return fmt.Errorf("invalid rate limit requests: %d", c.Security.RateLimit.Requests)
	}

	return nil
}

// GetAddress повертає адресу для прослуховування сервера
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDatabaseDSN повертає DSN для підключення до бази даних
func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == DriverSQLite {
		return c.Database.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// IsDevelopment перевіряє чи додаток працює в режимі розробки
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction перевіряє чи додаток працює в продакшн режимі
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// TokenConfig збирає налаштування Token Issuer. Секрети читаються один раз при старті.
func (c *Config) TokenConfig() services.TokenConfig {
	return services.TokenConfig{
		AccessSecret:         c.Auth.JWTSecret,
		RefreshSecret:        c.Auth.RefreshSecret,
		Issuer:               c.Auth.Issuer,
		AccessTokenDuration:  mustDuration(c.Auth.AccessTokenDuration, services.DefaultAccessTokenDuration),
		RefreshTokenDuration: mustDuration(c.Auth.RefreshTokenDuration, services.DefaultRefreshTokenDuration),
	}
}

// SessionIdleTimeout вікно неактивності сесії
func (c *Config) SessionIdleTimeout() time.Duration {
	return mustDuration(c.Auth.SessionIdleTimeout, services.DefaultSessionIdleTimeout)
}

// AuthOptions додаткові налаштування Authenticator
func (c *Config) AuthOptions() services.AuthOptions {
	return services.AuthOptions{
		FederatedRefreshTokenDuration: mustDuration(c.Auth.FederatedRefreshTokenDuration, services.DefaultFederatedRefreshTokenDuration),
	}
}

// CookieOptions атрибути refresh cookie для handlers
func (c *Config) CookieOptions() handlers.CookieOptions {
	return handlers.CookieOptions{
		Name:   c.Security.Cookie.Name,
		Path:   "/",
		Domain: c.Security.Cookie.Domain,
		Secure: c.Security.Cookie.Secure,
	}
}

// GenerateConfigFromTemplate генерує HCL конфігурацію з шаблону використовуючи змінні
func GenerateConfigFromTemplate(templatePath, outputPath string, vars map[string]interface{}) error {
	return generateConfigWithVars(templatePath, outputPath, vars)
}
