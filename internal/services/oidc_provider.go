package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"bizsite-api/internal/models"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	// GoogleJWKSURL публічні ключі Google для ID token
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// GoogleIssuers допустимі значення iss у Google ID token
var GoogleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleVerifierConfig налаштування перевірки Google ID token
type GoogleVerifierConfig struct {
	ClientID string
	Issuers  []string
	Now      func() time.Time
}

// googleIDTokenClaims представляє claims Google ID token
type googleIDTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// googleIdentityVerifier реалізація IdentityVerifier для Google
type googleIdentityVerifier struct {
	clientID string
	issuers  []string
	keyFunc  jwt.Keyfunc
	now      func() time.Time
}

// NewGoogleIdentityVerifier створює верифікатор з джерелом ключів keyFunc
func NewGoogleIdentityVerifier(cfg GoogleVerifierConfig, keyFunc jwt.Keyfunc) IdentityVerifier {
	v := &googleIdentityVerifier{
		clientID: cfg.ClientID,
		issuers:  cfg.Issuers,
		keyFunc:  keyFunc,
		now:      cfg.Now,
	}
	if len(v.issuers) == 0 {
		v.issuers = GoogleIssuers
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

// NewRemoteJWKS завантажує JWKS та оновлює його у фоні
func NewRemoteJWKS(jwksURL string) (*keyfunc.JWKS, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logrus.WithError(err).WithField("jwks_url", jwksURL).Warn("Failed to refresh JWKS")
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	return jwks, nil
}

func (g *googleIdentityVerifier) Provider() string {
	return models.ProviderGoogle
}

// VerifyExternalIdentity перевіряє підпис, audience, issuer і строк дії ID token
func (g *googleIdentityVerifier) VerifyExternalIdentity(_ context.Context, idToken string) (*ExternalIdentity, error) {
	if g.clientID == "" {
		logrus.Error("Google client id is not configured")
		return nil, ErrInvalidExternalToken
	}

	claims := &googleIDTokenClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, g.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(g.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		logrus.WithError(err).Warn("External ID token validation failed")
		return nil, ErrInvalidExternalToken
	}

	if !slices.Contains(g.issuers, claims.Issuer) {
		logrus.WithField("issuer", claims.Issuer).Warn("External ID token issuer mismatch")
		return nil, ErrInvalidExternalToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidExternalToken
	}

	logrus.WithFields(logrus.Fields{
		"sub":            claims.Subject,
		"email_verified": claims.EmailVerified,
	}).Debug("External ID token validated successfully")

	return &ExternalIdentity{
		Email:             claims.Email,
		ProviderSubjectID: claims.Subject,
		Name:              claims.Name,
	}, nil
}
