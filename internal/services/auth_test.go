package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bizsite-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVerifier підставна перевірка зовнішнього ID token
type stubVerifier struct {
	identities map[string]ExternalIdentity
}

func (stubVerifier) Provider() string {
	return models.ProviderGoogle
}

func (v stubVerifier) VerifyExternalIdentity(_ context.Context, idToken string) (*ExternalIdentity, error) {
	identity, ok := v.identities[idToken]
	if !ok {
		return nil, errors.New("bad id token")
	}
	return &identity, nil
}

type authFixture struct {
	clock    *fakeClock
	users    UserService
	store    KeyValueStore
	sessions SessionManager
	issuer   TokenIssuer
	auth     AuthService
}

func newAuthFixture(t *testing.T, store KeyValueStore) *authFixture {
	t.Helper()

	clock := newFakeClock()
	if store == nil {
		store = NewMemoryStoreWithClock(clock.Now)
	}
	f := &authFixture{
		clock:    clock,
		users:    NewMemoryUserService(),
		store:    store,
		sessions: NewSessionManager(store, DefaultSessionIdleTimeout),
		issuer:   newTestIssuer(t, clock),
	}
	verifier := stubVerifier{identities: map[string]ExternalIdentity{
		"google-id-token": {Email: "jane@gmail.com", ProviderSubjectID: "1234567890", Name: "Jane"},
	}}
	f.auth = NewAuthService(f.users, f.issuer, f.sessions, verifier, AuthOptions{Now: clock.Now})

	_, err := f.users.CreateLocalUser(context.Background(), "tester", "pass123", models.RoleUser)
	require.NoError(t, err)
	return f
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	result, err := f.auth.Login(ctx, "tester", "pass123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.NotEmpty(t, result.JTI)
	assert.Equal(t, int64(900), result.ExpiresIn)
	assert.Equal(t, DefaultSessionIdleTimeout, result.SessionMaxAge)

	claims, err := f.issuer.VerifyAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.UserID, claims.UserID())
	assert.Equal(t, models.RoleUser, claims.Role)

	exists, err := f.store.Exists(ctx, "sess:"+result.RefreshToken)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAuthService_LoginRejected(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	_, err := f.users.CreateFederatedUser(ctx, models.ProviderGoogle, ExternalIdentity{
		Email: "fed@gmail.com", ProviderSubjectID: "fed-1",
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "tester", password: "wrong"},
		{name: "unknown user", username: "nobody", password: "pass123"},
		{name: "empty password", username: "tester", password: ""},
		{name: "federated account", username: "fed", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuthService_FederatedLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	first, err := f.auth.FederatedLogin(ctx, "google-id-token")
	require.NoError(t, err)
	assert.Equal(t, DefaultFederatedRefreshTokenDuration, first.SessionMaxAge)

	user, err := f.users.GetUserByID(ctx, first.UserID)
	require.NoError(t, err)
	assert.Equal(t, "jane", user.Username)
	assert.Equal(t, models.ProviderGoogle, user.OAuthProvider)
	assert.Nil(t, user.PasswordHash)

	second, err := f.auth.FederatedLogin(ctx, "google-id-token")
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID, "repeat login must reuse the account")

	users, err := f.users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	// refresh token федеративного входу живе годину
	f.clock.Advance(time.Hour + time.Second)
	_, err = f.auth.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestAuthService_FederatedLoginRejected(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	_, err := f.auth.FederatedLogin(ctx, "forged")
	assert.ErrorIs(t, err, ErrInvalidExternalToken)

	_, err = f.auth.FederatedLogin(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidExternalToken)

	disabled := NewAuthService(f.users, f.issuer, f.sessions, nil, AuthOptions{})
	_, err = disabled.FederatedLogin(ctx, "google-id-token")
	assert.ErrorIs(t, err, ErrInvalidExternalToken)
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	login, err := f.auth.Login(ctx, "tester", "pass123")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	grant, err := f.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.JTI, grant.JTI)

	claims, err := f.issuer.VerifyAccessToken(grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, login.UserID, claims.UserID())

	// refresh token не ротується, ним можна користуватись повторно
	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_RefreshRequiresSignatureAndSession(t *testing.T) {
	ctx := context.Background()

	t.Run("no token", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		_, err := f.auth.Refresh(ctx, "")
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("session exists but signature is invalid", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		require.NoError(t, f.sessions.CreateSession(ctx, "forged-token", SessionRecord{Subject: "user-1", Role: "admin"}))

		_, err := f.auth.Refresh(ctx, "forged-token")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("valid signature without session", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		refresh, err := f.issuer.IssueRefreshToken("user-1", "user", 0)
		require.NoError(t, err)

		_, err = f.auth.Refresh(ctx, refresh.Token)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("session belongs to another subject", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		refresh, err := f.issuer.IssueRefreshToken("user-2", "user", 0)
		require.NoError(t, err)
		require.NoError(t, f.sessions.CreateSession(ctx, refresh.Token, SessionRecord{Subject: "user-1", Role: "admin"}))

		_, err = f.auth.Refresh(ctx, refresh.Token)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("session idle timeout", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		login, err := f.auth.Login(ctx, "tester", "pass123")
		require.NoError(t, err)

		f.clock.Advance(DefaultSessionIdleTimeout + time.Second)
		_, err = f.auth.Refresh(ctx, login.RefreshToken)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("activity keeps session alive", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		login, err := f.auth.Login(ctx, "tester", "pass123")
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			f.clock.Advance(20 * time.Hour)
			_, err = f.auth.Refresh(ctx, login.RefreshToken)
			require.NoError(t, err)
		}
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	login, err := f.auth.Login(ctx, "tester", "pass123")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, login.RefreshToken, "Bearer "+login.AccessToken))

	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	revoked, err := f.sessions.IsRevoked(ctx, login.JTI)
	require.NoError(t, err)
	assert.True(t, revoked)

	// повторний logout нічого не ламає
	assert.NoError(t, f.auth.Logout(ctx, login.RefreshToken, "Bearer "+login.AccessToken))
	assert.NoError(t, f.auth.Logout(ctx, "", ""))
}

func TestAuthService_LogoutStepsAreIndependent(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed header still destroys session", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		login, err := f.auth.Login(ctx, "tester", "pass123")
		require.NoError(t, err)

		err = f.auth.Logout(ctx, login.RefreshToken, "Basic dGVzdGVyOnBhc3MxMjM=")
		assert.ErrorIs(t, err, ErrMalformedAccessToken)

		_, err = f.auth.Refresh(ctx, login.RefreshToken)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("undecodable bearer token", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		err := f.auth.Logout(ctx, "", "Bearer not-a-jwt")
		assert.ErrorIs(t, err, ErrMalformedAccessToken)
	})

	t.Run("access token revoked without cookie", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		login, err := f.auth.Login(ctx, "tester", "pass123")
		require.NoError(t, err)

		require.NoError(t, f.auth.Logout(ctx, "", "Bearer "+login.AccessToken))

		revoked, err := f.sessions.IsRevoked(ctx, login.JTI)
		require.NoError(t, err)
		assert.True(t, revoked)

		// сесія лишилась
		_, err = f.auth.Refresh(ctx, login.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("expired access token needs no revocation", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		login, err := f.auth.Login(ctx, "tester", "pass123")
		require.NoError(t, err)

		f.clock.Advance(16 * time.Minute)
		require.NoError(t, f.auth.Logout(ctx, login.RefreshToken, "Bearer "+login.AccessToken))

		exists, err := f.store.Exists(ctx, "bl:"+login.JTI)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestAuthService_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, failingStore{})

	_, err := f.auth.Login(ctx, "tester", "pass123")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	refresh, err := f.issuer.IssueRefreshToken("user-1", "user", 0)
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, refresh.Token)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	access, err := f.issuer.IssueAccessToken("user-1", "user")
	require.NoError(t, err)
	err = f.auth.Logout(ctx, refresh.Token, "Bearer "+access.Token)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, ErrMalformedAccessToken)
}

func TestAuthService_RedisOutage(t *testing.T) {
	ctx := context.Background()
	store, mr := newMiniredisStore(t)
	f := newAuthFixture(t, store)

	login, err := f.auth.Login(ctx, "tester", "pass123")
	require.NoError(t, err)

	mr.Close()

	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{header: "Bearer   abc ", token: "abc", ok: true},
		{header: "Bearer ", ok: false},
		{header: "bearer abc", ok: false},
		{header: "Basic abc", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
