package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenIssuer_RejectsBadSecrets(t *testing.T) {
	tests := []struct {
		name string
		cfg  TokenConfig
	}{
		{name: "empty access secret", cfg: TokenConfig{RefreshSecret: "r"}},
		{name: "empty refresh secret", cfg: TokenConfig{AccessSecret: "a"}},
		{name: "identical secrets", cfg: TokenConfig{AccessSecret: "same", RefreshSecret: "same"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenIssuer(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestTokenIssuer_AccessTokenRoundTrip(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock)

	issued, err := issuer.IssueAccessToken("user-1", "admin")
	require.NoError(t, err)

	assert.NotEmpty(t, issued.JTI)
	assert.Equal(t, int64(900), issued.ExpiresIn)
	assert.Equal(t, clock.Now().Add(15*time.Minute), issued.ExpiresAt)

	claims, err := issuer.VerifyAccessToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.Equal(t, "bizsite-api-test", claims.Issuer)
}

func TestTokenIssuer_FreshJTIPerToken(t *testing.T) {
	issuer := newTestIssuer(t, newFakeClock())

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		issued, err := issuer.IssueAccessToken("user-1", "user")
		require.NoError(t, err)
		assert.False(t, seen[issued.JTI], "jti reused: %s", issued.JTI)
		seen[issued.JTI] = true
	}
}

func TestTokenIssuer_ExpiredAccessToken(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock)

	issued, err := issuer.IssueAccessToken("user-1", "user")
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)

	_, err = issuer.VerifyAccessToken(issued.Token)
	assert.ErrorIs(t, err, ErrVerificationFailed)

	// logout все одно може прочитати jti
	claims, err := issuer.DecodeAccessToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.JTI, claims.ID)
}

func TestTokenIssuer_DecodeStillChecksSignature(t *testing.T) {
	issuer := newTestIssuer(t, newFakeClock())

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ID: "jti-1"},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = issuer.DecodeAccessToken(forged)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestTokenIssuer_RejectsTamperedAndForeignTokens(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock)

	access, err := issuer.IssueAccessToken("user-1", "user")
	require.NoError(t, err)
	refresh, err := issuer.IssueRefreshToken("user-1", "user", 0)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	otherIssuer, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Issuer:        "someone-else",
		Now:           clock.Now,
	})
	require.NoError(t, err)
	foreign, err := otherIssuer.IssueAccessToken("user-1", "user")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "tampered signature", token: tamper(access.Token)},
		{name: "refresh token as access token", token: refresh.Token},
		{name: "alg none", token: noneToken},
		{name: "wrong issuer", token: foreign.Token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.VerifyAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrVerificationFailed)
		})
	}
}

// tamper змінює символ підпису, не чіпаючи останній (у ньому є невикористані біти)
func tamper(token string) string {
	b := []byte(token)
	i := len(b) - 5
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestTokenIssuer_RefreshToken(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock)

	t.Run("default lifetime", func(t *testing.T) {
		issued, err := issuer.IssueRefreshToken("user-1", "user", 0)
		require.NoError(t, err)
		assert.Empty(t, issued.JTI)
		assert.Equal(t, clock.Now().Add(DefaultRefreshTokenDuration), issued.ExpiresAt)

		claims, err := issuer.VerifyRefreshToken(issued.Token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, "user", claims.Role)
		assert.Empty(t, claims.ID)
	})

	t.Run("custom lifetime expires", func(t *testing.T) {
		issued, err := issuer.IssueRefreshToken("user-1", "user", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(3600), issued.ExpiresIn)

		clock.Advance(time.Hour + time.Second)
		_, err = issuer.VerifyRefreshToken(issued.Token)
		assert.ErrorIs(t, err, ErrVerificationFailed)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		access, err := issuer.IssueAccessToken("user-1", "user")
		require.NoError(t, err)

		_, err = issuer.VerifyRefreshToken(access.Token)
		assert.ErrorIs(t, err, ErrVerificationFailed)
	})
}
