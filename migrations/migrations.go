// Package migrations містить версіоновані міграції схеми, які виконує goose.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

// dialectFor перетворює драйвер з конфігурації на діалект goose
func dialectFor(driver string) (goose.Dialect, error) {
	switch driver {
	case "postgres":
		return goose.DialectPostgres, nil
	case "sqlite":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("unsupported migration dialect: %q", driver)
	}
}

func newProvider(db *sql.DB, driver string) (*goose.Provider, error) {
	dialect, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	return goose.NewProvider(dialect, db, nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(
			goose.NewGoMigration(20250802,
				&goose.GoFunc{RunTx: createUsersTable(dialect)},
				&goose.GoFunc{RunTx: dropUsersTable},
			),
			goose.NewGoMigration(20250806,
				&goose.GoFunc{RunTx: addUsersUniqueConstraints},
				&goose.GoFunc{RunTx: dropUsersUniqueConstraints},
			),
		),
	)
}

// Up застосовує всі невиконані міграції
func Up(ctx context.Context, db *sql.DB, driver string) error {
	provider, err := newProvider(db, driver)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		logrus.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"duration": r.Duration,
		}).Info("Migration applied")
	}
	return nil
}

// Down відкочує останню застосовану міграцію
func Down(ctx context.Context, db *sql.DB, driver string) error {
	provider, err := newProvider(db, driver)
	if err != nil {
		return err
	}

	result, err := provider.Down(ctx)
	if err != nil {
		return err
	}
	logrus.WithField("version", result.Source.Version).Info("Migration rolled back")
	return nil
}

// Version повертає поточну версію схеми
func Version(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	provider, err := newProvider(db, driver)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}
