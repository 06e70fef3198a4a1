package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"bizsite-api/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// DefaultFederatedRefreshTokenDuration строк дії refresh token після федеративного входу
const DefaultFederatedRefreshTokenDuration = time.Hour

// AuthOptions додаткові налаштування AuthService
type AuthOptions struct {
	// FederatedRefreshTokenDuration <= 0 означає DefaultFederatedRefreshTokenDuration
	FederatedRefreshTokenDuration time.Duration
	Now                           func() time.Time
}

// authService реалізація AuthService
type authService struct {
	userService         UserService
	tokenIssuer         TokenIssuer
	sessionManager      SessionManager
	identityVerifier    IdentityVerifier
	federatedRefreshTTL time.Duration
	now                 func() time.Time
}

// NewAuthService створює новий AuthService. identityVerifier може бути nil,
// тоді федеративний вхід завжди повертає ErrInvalidExternalToken.
func NewAuthService(userService UserService, tokenIssuer TokenIssuer, sessionManager SessionManager, identityVerifier IdentityVerifier, opts AuthOptions) AuthService {
	s := &authService{
		userService:         userService,
		tokenIssuer:         tokenIssuer,
		sessionManager:      sessionManager,
		identityVerifier:    identityVerifier,
		federatedRefreshTTL: opts.FederatedRefreshTokenDuration,
		now:                 opts.Now,
	}
	if s.federatedRefreshTTL <= 0 {
		s.federatedRefreshTTL = DefaultFederatedRefreshTokenDuration
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Login перевіряє локальні облікові дані та відкриває нову сесію
func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userService.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		// вирівнюємо час відповіді з випадком невірного пароля
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash(), []byte(password))
		logrus.Debug("Login rejected")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to look up user")
		return nil, err
	}

	if !user.IsLocal() || user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		logrus.WithField("user_id", user.ID).Debug("Login rejected")
		return nil, ErrInvalidCredentials
	}

	result, err := s.openSession(ctx, user, 0)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"jti":     result.JTI,
	}).Info("User logged in successfully")
	return result, nil
}

// FederatedLogin входить через ID token зовнішнього провайдера, створюючи користувача при потребі
func (s *authService) FederatedLogin(ctx context.Context, idToken string) (*LoginResult, error) {
	if s.identityVerifier == nil || idToken == "" {
		return nil, ErrInvalidExternalToken
	}

	identity, err := s.identityVerifier.VerifyExternalIdentity(ctx, idToken)
	if err != nil {
		return nil, ErrInvalidExternalToken
	}

	provider := s.identityVerifier.Provider()
	user, err := s.userService.GetUserByProvider(ctx, provider, identity.ProviderSubjectID)
	if errors.Is(err, ErrUserNotFound) {
		user, err = s.userService.CreateFederatedUser(ctx, provider, *identity)
		if errors.Is(err, ErrUserExists) {
			// паралельний вхід вже створив запис
			user, err = s.userService.GetUserByProvider(ctx, provider, identity.ProviderSubjectID)
		}
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to resolve federated user")
		return nil, err
	}

	result, err := s.openSession(ctx, user, s.federatedRefreshTTL)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"provider": provider,
		"jti":      result.JTI,
	}).Info("User logged in via external provider")
	return result, nil
}

// Refresh видає новий access token. Токен приймається лише якщо валідні
// і його підпис, і запис сесії. Refresh token не ротується.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AccessGrant, error) {
	if refreshToken == "" {
		return nil, ErrNoToken
	}

	claims, err := s.tokenIssuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	record, err := s.sessionManager.RenewSession(ctx, refreshToken)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			logrus.WithError(err).Error("Failed to renew session")
		}
		return nil, err
	}
	if record.Subject != claims.Subject {
		return nil, ErrSessionNotFound
	}

	access, err := s.tokenIssuer.IssueAccessToken(record.Subject, record.Role)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": record.Subject,
		"jti":     access.JTI,
	}).Info("Access token refreshed")
	return grantFrom(access), nil
}

// Logout виконує два незалежні кроки: видалення сесії та відкликання jti.
// Жоден з них не блокує інший; обидва ідемпотентні.
func (s *authService) Logout(ctx context.Context, refreshToken, authorizationHeader string) error {
	var errs []error

	if refreshToken != "" {
		if err := s.sessionManager.DestroySession(ctx, refreshToken); err != nil {
			logrus.WithError(err).Error("Failed to destroy session")
			errs = append(errs, err)
		}
	} else {
		logrus.Debug("Logout without refresh token cookie")
	}

	if authorizationHeader != "" {
		if err := s.revokeBearer(ctx, authorizationHeader); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *authService) revokeBearer(ctx context.Context, authorizationHeader string) error {
	token, ok := BearerToken(authorizationHeader)
	if !ok {
		return ErrMalformedAccessToken
	}

	claims, err := s.tokenIssuer.DecodeAccessToken(token)
	if err != nil {
		logrus.WithError(err).Info("Could not decode access token on logout")
		return ErrMalformedAccessToken
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.sessionManager.RevokeAccessToken(ctx, claims.ID, ttl); err != nil {
		logrus.WithError(err).WithField("jti", claims.ID).Error("Failed to revoke access token")
		return err
	}
	return nil
}

// openSession випускає пару токенів і створює запис сесії під refresh token
func (s *authService) openSession(ctx context.Context, user *models.User, refreshTTL time.Duration) (*LoginResult, error) {
	access, err := s.tokenIssuer.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokenIssuer.IssueRefreshToken(user.ID, user.Role, refreshTTL)
	if err != nil {
		return nil, err
	}

	record := SessionRecord{Subject: user.ID, Role: user.Role}
	if err := s.sessionManager.CreateSession(ctx, refresh.Token, record); err != nil {
		logrus.WithError(err).Error("Failed to create session")
		return nil, err
	}

	maxAge := s.sessionManager.IdleTimeout()
	if lifetime := refresh.ExpiresAt.Sub(s.now()); lifetime < maxAge {
		maxAge = lifetime
	}

	return &LoginResult{
		AccessGrant:   *grantFrom(access),
		RefreshToken:  refresh.Token,
		SessionMaxAge: maxAge,
		UserID:        user.ID,
	}, nil
}

func grantFrom(token *IssuedToken) *AccessGrant {
	return &AccessGrant{
		AccessToken: token.Token,
		JTI:         token.JTI,
		ExpiresIn:   token.ExpiresIn,
		ExpiresAt:   token.ExpiresAt,
	}
}

// BearerToken витягує токен з заголовка "Authorization: Bearer <token>"
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

var dummyPasswordHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), PasswordHashCost)
	return hash
})
