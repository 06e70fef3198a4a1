package migrations

import (
	"context"
	"database/sql"
)

// addUsersUniqueConstraints додає унікальні індекси (username, provider) та (provider, provider id)
func addUsersUniqueConstraints(ctx context.Context, tx *sql.Tx) error {
	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_provider ON users (username, oauth_provider)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_provider_id ON users (oauth_provider, oauth_provider_id)`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// dropUsersUniqueConstraints видаляє унікальні індекси
func dropUsersUniqueConstraints(ctx context.Context, tx *sql.Tx) error {
	for _, index := range []string{"idx_users_username_provider", "idx_users_provider_id"} {
		if _, err := tx.ExecContext(ctx, `DROP INDEX IF EXISTS `+index); err != nil {
			return err
		}
	}
	return nil
}
