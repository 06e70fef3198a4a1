package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrations.db")), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)

	db, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUp_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	require.NoError(t, Up(ctx, db, "sqlite"))
	require.NoError(t, Up(ctx, db, "sqlite"))

	version, err := Version(ctx, db, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(20250806), version)
}

func TestDown_RollsBackLatest(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, Up(ctx, db, "sqlite"))

	require.NoError(t, Down(ctx, db, "sqlite"))
	version, err := Version(ctx, db, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(20250802), version)

	// без унікального індексу дублікати проходять
	insertLocal(t, db, "a", "tester")
	insertLocal(t, db, "b", "tester")
}

func TestUsersTable_Constraints(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, Up(ctx, db, "sqlite"))

	insertLocal(t, db, "id-1", "tester")

	tests := []struct {
		name  string
		query string
		args  []interface{}
	}{
		{
			name:  "duplicate local username",
			query: `INSERT INTO users (id, username, password_hash, oauth_provider, role) VALUES (?, ?, ?, 'local', 'user')`,
			args:  []interface{}{"id-2", "tester", "hash"},
		},
		{
			name:  "local account without password",
			query: `INSERT INTO users (id, username, oauth_provider, role) VALUES (?, ?, 'local', 'user')`,
			args:  []interface{}{"id-3", "nopass"},
		},
		{
			name:  "federated account with password",
			query: `INSERT INTO users (id, username, password_hash, oauth_provider, oauth_provider_id, role) VALUES (?, ?, ?, 'google', ?, 'user')`,
			args:  []interface{}{"id-4", "jane", "hash", "123"},
		},
		{
			name:  "unknown role",
			query: `INSERT INTO users (id, username, password_hash, oauth_provider, role) VALUES (?, ?, ?, 'local', 'root')`,
			args:  []interface{}{"id-5", "root", "hash"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.ExecContext(ctx, tt.query, tt.args...)
			assert.Error(t, err)
		})
	}

	// те саме ім'я у федеративного акаунта дозволене
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, username, oauth_provider, oauth_provider_id, role) VALUES (?, ?, 'google', ?, 'user')`,
		"id-6", "tester", "google-sub-1")
	assert.NoError(t, err)
}

func TestUnsupportedDriver(t *testing.T) {
	err := Up(context.Background(), openSQLite(t), "mysql")
	assert.ErrorContains(t, err, "unsupported migration dialect")
}

func insertLocal(t *testing.T, db *sql.DB, id, username string) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO users (id, username, password_hash, oauth_provider, role) VALUES (?, ?, 'hash', 'local', 'user')`, id, username)
	require.NoError(t, err)
}
