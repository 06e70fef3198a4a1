package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"bizsite-api/internal/build"
	"bizsite-api/internal/config"
	"bizsite-api/internal/models"
	"bizsite-api/internal/services"
	"bizsite-api/migrations"
)

// minAdminPasswordLength збігається з валідацією реєстрації
const minAdminPasswordLength = 6

// configureAction генерує конфігурацію з шаблону
func configureAction(c *cli.Context) error {
	templatePath := c.String("template")
	outputPath := c.String("output")
	version := c.String("version")
	mode := c.String("mode")

	fmt.Printf("🔧 Configuring bizsite-api\n")
	if templatePath == "" {
		fmt.Printf("Template: built-in\n")
	} else {
		fmt.Printf("Template: %s\n", templatePath)
	}
	fmt.Printf("Output: %s\n", outputPath)
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Mode: %s\n", mode)

	outputPathAbs, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	if templatePath != "" {
		if _, err := os.Stat(templatePath); os.IsNotExist(err) {
			return fmt.Errorf("template file does not exist: %s", templatePath)
		}
	}

	vars := getConfigVars(mode, version)
	if err := config.GenerateConfigFromTemplate(templatePath, outputPathAbs, vars); err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	fmt.Printf("✅ Configuration generated successfully: %s\n", outputPathAbs)
	return nil
}

// serverAction запускає API сервер
func serverAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	fmt.Printf("🚀 Starting bizsite-api\n")
	fmt.Printf("Version: %s\n", build.Version)

	return config.StartServer(cfg)
}

// migrateAction застосовує або відкочує міграції
func migrateAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if !c.Bool("down") {
		return config.RunMigrations(c.Context, cfg)
	}

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return migrations.Down(c.Context, sqlDB, cfg.Database.Driver)
}

// createAdminAction створює локального адміністратора. Реєстрація через API завжди дає роль user.
func createAdminAction(c *cli.Context) error {
	username := c.String("username")
	password := c.String("password")
	if len(password) < minAdminPasswordLength {
		return fmt.Errorf("password must be at least %d characters (use --password or ADMIN_PASSWORD)", minAdminPasswordLength)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := config.RunMigrations(c.Context, cfg); err != nil {
		return err
	}

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	user, err := services.NewUserService(db).CreateLocalUser(c.Context, username, password, models.RoleAdmin)
	if errors.Is(err, services.ErrUserExists) {
		return fmt.Errorf("user %q already exists", username)
	}
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	fmt.Printf("✅ Admin %s created (id %s)\n", user.Username, user.ID)
	return nil
}

// versionAction показує інформацію про версію
func versionAction(c *cli.Context) error {
	info := build.Info()

	fmt.Printf("bizsite-api\n")
	fmt.Printf("Version: %s\n", info["version"])
	fmt.Printf("Build Number: %s\n", info["number"])
	fmt.Printf("Git Commit: %s\n", info["git_commit"])
	fmt.Printf("Build Time: %s\n", info["build_time"])

	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s. Run 'configure' command first", configPath)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// getConfigVars повертає мапу змінних для конфігурації. Секрети сюди не потрапляють.
func getConfigVars(mode, version string) map[string]interface{} {
	vars := map[string]interface{}{
		"build_version": version,
		"environment":   environmentForMode(mode),
	}

	setVarFromEnv(vars, "api_server_host", "API_SERVER_HOST", "0.0.0.0")
	setVarFromEnv(vars, "api_server_port", "API_SERVER_PORT", 8080)
	setVarFromEnv(vars, "log_level", "LOG_LEVEL", getLogLevelForMode(mode))
	setVarFromEnv(vars, "log_format", "LOG_FORMAT", getLogFormatForMode(mode))

	// База даних
	setVarFromEnv(vars, "db_driver", "DB_DRIVER", "postgres")
	setVarFromEnv(vars, "db_host", "DB_HOST", "localhost")
	setVarFromEnv(vars, "db_port", "DB_PORT", 5432)
	setVarFromEnv(vars, "db_name", "DB_NAME", "bizsite")
	setVarFromEnv(vars, "db_user", "DB_USER", "bizsite")
	setVarFromEnv(vars, "db_path", "DB_PATH", "bizsite.db")

	// Токени та сесії
	setVarFromEnv(vars, "jwt_issuer", "JWT_ISSUER", "bizsite-api")
	setVarFromEnv(vars, "access_token_duration", "ACCESS_TOKEN_DURATION", "15m")
	setVarFromEnv(vars, "refresh_token_duration", "REFRESH_TOKEN_DURATION", "7d")
	setVarFromEnv(vars, "session_idle_timeout", "SESSION_IDLE_TIMEOUT", "24h")

	// Безпека
	setVarFromEnv(vars, "cors_allowed_origins", "CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	setVarFromEnv(vars, "cookie_domain", "COOKIE_DOMAIN", "")
	vars["cookie_secure"] = mode != "local"

	// Redis
	setVarFromEnv(vars, "redis_host", "REDIS_HOST", "localhost")
	setVarFromEnv(vars, "redis_port", "REDIS_PORT", 6379)
	vars["redis_enabled"] = mode != "local" || os.Getenv("REDIS_HOST") != ""

	return vars
}

// setVarFromEnv встановлює змінну з оточення або дефолтне значення
func setVarFromEnv(vars map[string]interface{}, key, envKey string, defaultValue interface{}) {
	if envValue := os.Getenv(envKey); envValue != "" {
		vars[key] = envValue
	} else {
		vars[key] = defaultValue
	}
}

// getLogLevelForMode повертає рівень логування для режиму
func getLogLevelForMode(mode string) string {
	switch mode {
	case "production":
		return "warn"
	case "staging":
		return "info"
	default:
		return "debug"
	}
}

func getLogFormatForMode(mode string) string {
	if mode == "local" {
		return "text"
	}
	return "json"
}

func environmentForMode(mode string) string {
	if mode == "local" {
		return "development"
	}
	return mode
}
