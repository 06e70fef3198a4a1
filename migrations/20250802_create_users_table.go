package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// createUsersTable створює таблицю users.
// CHECK відтворює інваріант ідентичності: або пароль, або зовнішній провайдер.
func createUsersTable(dialect goose.Dialect) func(ctx context.Context, tx *sql.Tx) error {
	timestamp := "TIMESTAMPTZ"
	if dialect == goose.DialectSQLite3 {
		timestamp = "DATETIME"
	}

	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS users (
				id                VARCHAR(36)  PRIMARY KEY,
				username          VARCHAR(100) NOT NULL,
				email             VARCHAR(255),
				name              VARCHAR(255),
				password_hash     VARCHAR(255),
				oauth_provider    VARCHAR(32)  NOT NULL DEFAULT 'local',
				oauth_provider_id VARCHAR(255),
				role              VARCHAR(20)  NOT NULL DEFAULT 'user',
				created_at        %[1]s,
				updated_at        %[1]s,
				CONSTRAINT chk_users_identity CHECK (
					(oauth_provider = 'local' AND password_hash IS NOT NULL AND oauth_provider_id IS NULL)
					OR (oauth_provider <> 'local' AND oauth_provider_id IS NOT NULL AND password_hash IS NULL)
				),
				CONSTRAINT chk_users_role CHECK (role IN ('user', 'admin'))
			)`, timestamp))
		return err
	}
}

// dropUsersTable видаляє таблицю users
func dropUsersTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS users`)
	return err
}
