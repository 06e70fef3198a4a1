package services

import (
	"context"
	"path/filepath"
	"testing"

	"bizsite-api/internal/models"
	"bizsite-api/migrations"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrations.Up(context.Background(), sqlDB, "sqlite"))
	return db
}

// userStores повертає обидві реалізації Credential Store
func userStores(t *testing.T) map[string]UserService {
	return map[string]UserService{
		"gorm":   NewUserService(newTestDB(t)),
		"memory": NewMemoryUserService(),
	}
}

func TestUserService_CreateLocalUser(t *testing.T) {
	ctx := context.Background()
	for name, users := range userStores(t) {
		t.Run(name, func(t *testing.T) {
			user, err := users.CreateLocalUser(ctx, "tester", "pass123", "")
			require.NoError(t, err)
			assert.NotEmpty(t, user.ID)
			assert.Equal(t, models.RoleUser, user.Role)
			assert.Equal(t, models.ProviderLocal, user.OAuthProvider)
			require.NotNil(t, user.PasswordHash)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("pass123")))

			found, err := users.GetUserByUsername(ctx, "tester")
			require.NoError(t, err)
			assert.Equal(t, user.ID, found.ID)

			byID, err := users.GetUserByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, "tester", byID.Username)

			_, err = users.CreateLocalUser(ctx, "tester", "other", models.RoleUser)
			assert.ErrorIs(t, err, ErrUserExists)

			_, err = users.GetUserByUsername(ctx, "nobody")
			assert.ErrorIs(t, err, ErrUserNotFound)
		})
	}
}

func TestUserService_CreateFederatedUser(t *testing.T) {
	ctx := context.Background()
	for name, users := range userStores(t) {
		t.Run(name, func(t *testing.T) {
			identity := ExternalIdentity{Email: "jane@gmail.com", ProviderSubjectID: "1234567890", Name: "Jane"}

			user, err := users.CreateFederatedUser(ctx, models.ProviderGoogle, identity)
			require.NoError(t, err)
			assert.Equal(t, "jane", user.Username)
			assert.Nil(t, user.PasswordHash)

			found, err := users.GetUserByProvider(ctx, models.ProviderGoogle, "1234567890")
			require.NoError(t, err)
			assert.Equal(t, user.ID, found.ID)

			// той самий provider id вдруге
			_, err = users.CreateFederatedUser(ctx, models.ProviderGoogle, identity)
			assert.ErrorIs(t, err, ErrUserExists)

			// інший акаунт з тією ж локальною частиною email
			other, err := users.CreateFederatedUser(ctx, models.ProviderGoogle, ExternalIdentity{
				Email: "jane@example.org", ProviderSubjectID: "999777555",
			})
			require.NoError(t, err)
			assert.Equal(t, "jane-777555", other.Username)

			// федеративний акаунт не заважає локальному з тим самим іменем
			_, err = users.CreateLocalUser(ctx, "jane", "pass123", models.RoleUser)
			assert.NoError(t, err)
		})
	}
}

func TestUserService_UpdateUser(t *testing.T) {
	ctx := context.Background()
	for name, users := range userStores(t) {
		t.Run(name, func(t *testing.T) {
			user, err := users.CreateLocalUser(ctx, "tester", "pass123", models.RoleUser)
			require.NoError(t, err)
			_, err = users.CreateLocalUser(ctx, "taken", "pass123", models.RoleUser)
			require.NoError(t, err)

			role := models.RoleAdmin
			password := "new-pass"
			updated, err := users.UpdateUser(ctx, user.ID, UserUpdate{Role: &role, Password: &password})
			require.NoError(t, err)
			assert.Equal(t, models.RoleAdmin, updated.Role)
			require.NotNil(t, updated.PasswordHash)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*updated.PasswordHash), []byte("new-pass")))

			bogus := "superuser"
			_, err = users.UpdateUser(ctx, user.ID, UserUpdate{Role: &bogus})
			assert.ErrorIs(t, err, ErrInvalidIdentity)

			username := "taken"
			_, err = users.UpdateUser(ctx, user.ID, UserUpdate{Username: &username})
			assert.ErrorIs(t, err, ErrUserExists)

			_, err = users.UpdateUser(ctx, "missing-id", UserUpdate{Role: &role})
			assert.ErrorIs(t, err, ErrUserNotFound)
		})
	}
}

func TestUserService_FederatedUserCannotGetPassword(t *testing.T) {
	ctx := context.Background()
	for name, users := range userStores(t) {
		t.Run(name, func(t *testing.T) {
			user, err := users.CreateFederatedUser(ctx, models.ProviderGoogle, ExternalIdentity{
				Email: "jane@gmail.com", ProviderSubjectID: "1234567890",
			})
			require.NoError(t, err)

			password := "pass123"
			_, err = users.UpdateUser(ctx, user.ID, UserUpdate{Password: &password})
			assert.ErrorIs(t, err, ErrInvalidIdentity)
		})
	}
}

func TestUserService_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, users := range userStores(t) {
		t.Run(name, func(t *testing.T) {
			first, err := users.CreateLocalUser(ctx, "first", "pass123", models.RoleUser)
			require.NoError(t, err)
			_, err = users.CreateLocalUser(ctx, "second", "pass123", models.RoleAdmin)
			require.NoError(t, err)

			list, err := users.ListUsers(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 2)

			require.NoError(t, users.DeleteUser(ctx, first.ID))
			assert.ErrorIs(t, users.DeleteUser(ctx, first.ID), ErrUserNotFound)

			_, err = users.GetUserByID(ctx, first.ID)
			assert.ErrorIs(t, err, ErrUserNotFound)

			list, err = users.ListUsers(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "second", list[0].Username)
		})
	}
}

func TestUserService_DatabaseUnavailable(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = NewUserService(db).GetUserByUsername(context.Background(), "tester")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}
