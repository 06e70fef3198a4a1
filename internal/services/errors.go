package services

import (
	"errors"
	"fmt"
)

// Помилки автентифікації. Усі вони термінальні для клієнта: повтор можливий
// лише через повторний вхід.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidExternalToken  = errors.New("invalid external token")
	ErrNoToken               = errors.New("no token provided")
	ErrInvalidSignature      = errors.New("invalid refresh token signature")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrSessionNotFound       = errors.New("session not found")
	ErrTokenRevoked          = errors.New("token has been revoked")
	ErrMalformedAccessToken  = errors.New("malformed access token")
)

// ErrVerificationFailed повертає TokenIssuer на будь-яку проблему з токеном:
// структура, підпис, алгоритм чи строк дії.
var ErrVerificationFailed = errors.New("token verification failed")

// Помилки сховища облікових записів
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrInvalidIdentity = errors.New("invalid identity")
)

// ErrUpstreamUnavailable позначає збій Credential Store або Session Store.
// Це системна помилка (5xx), а не помилка клієнта.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// upstream обгортає збій колаборатора так, щоб працювали errors.Is(err, ErrUpstreamUnavailable)
// та errors.Is(err, cause).
func upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, op, err)
}
