package config

import (
	"context"
	"fmt"
	"time"

	"bizsite-api/migrations"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Підтримувані драйвери бази даних
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// OpenDatabase підключається до бази даних через GORM і налаштовує connection pool
func OpenDatabase(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case DriverSQLite:
		logrus.Infof("🔌 Opening SQLite database: %s", cfg.Database.Path)
		dialector = sqlite.Open(cfg.GetDatabaseDSN())
	default:
		logrus.Infof("🔌 Connecting to PostgreSQL database: %s@%s:%d/%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
		dialector = postgres.Open(cfg.GetDatabaseDSN())
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		// gorm.ErrDuplicatedKey для порушень унікальних індексів
		TranslateError: true,
	}

	// В debug режимі включаємо логування SQL запитів
	if cfg.IsDevelopment() {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	connectionMaxLifetime := mustDuration(cfg.Database.ConnectionMaxLifetime, 5*time.Minute)
	if cfg.Database.MaxOpenConnections > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConnections)
	}
	if cfg.Database.MaxIdleConnections > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConnections)
	}
	sqlDB.SetConnMaxLifetime(connectionMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Infof("📊 Database connection pool configured: MaxOpen=%d, MaxIdle=%d, MaxLifetime=%v",
		cfg.Database.MaxOpenConnections, cfg.Database.MaxIdleConnections, connectionMaxLifetime)
	return db, nil
}

// RunMigrations виконує тільки міграції без запуску сервера
func RunMigrations(ctx context.Context, cfg *Config) error {
	db, err := OpenDatabase(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	defer sqlDB.Close()

	return migrate(ctx, cfg, db)
}

func migrate(ctx context.Context, cfg *Config, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	logrus.Info("🛠️  Running migrations...")
	if err := migrations.Up(ctx, sqlDB, cfg.Database.Driver); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logrus.Info("✅ Database migrations completed successfully")
	return nil
}
