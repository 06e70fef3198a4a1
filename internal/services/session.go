package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	sessionKeyPrefix    = "sess:"
	revocationKeyPrefix = "bl:"
	revocationSentinel  = "1"

	// DefaultSessionIdleTimeout ковзне вікно неактивності сесії
	DefaultSessionIdleTimeout = 24 * time.Hour
)

// SessionRecord значення, яке зберігається під ключем refresh token
type SessionRecord struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
}

// SessionManager інтерфейс для управління refresh-сесіями та відкликаними jti
type SessionManager interface {
	CreateSession(ctx context.Context, refreshToken string, record SessionRecord) error
	RenewSession(ctx context.Context, refreshToken string) (*SessionRecord, error)
	DestroySession(ctx context.Context, refreshToken string) error
	RevokeAccessToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	IdleTimeout() time.Duration
}

// sessionManager реалізація SessionManager поверх KeyValueStore
type sessionManager struct {
	store KeyValueStore
	ttl   time.Duration
}

// NewSessionManager створює новий Session Manager. ttl <= 0 означає DefaultSessionIdleTimeout.
func NewSessionManager(store KeyValueStore, ttl time.Duration) SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionIdleTimeout
	}
	return &sessionManager{
		store: store,
		ttl:   ttl,
	}
}

func (sm *sessionManager) IdleTimeout() time.Duration {
	return sm.ttl
}

// CreateSession створює нову сесію під ключем refresh token
func (sm *sessionManager) CreateSession(ctx context.Context, refreshToken string, record SessionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := sm.store.Set(ctx, sessionKeyPrefix+refreshToken, string(payload), sm.ttl); err != nil {
		return upstream("session store set", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": record.Subject,
		"token":   tokenPrefix(refreshToken),
		"ttl":     sm.ttl,
	}).Info("Session created")

	return nil
}

// RenewSession повертає запис сесії і продовжує її TTL (ковзне вікно).
// Ключ не змінюється, тож сесію неможливо "воскресити" після видалення чи спливу TTL.
func (sm *sessionManager) RenewSession(ctx context.Context, refreshToken string) (*SessionRecord, error) {
	key := sessionKeyPrefix + refreshToken

	payload, ok, err := sm.store.Get(ctx, key)
	if err != nil {
		return nil, upstream("session store get", err)
	}
	if !ok {
		return nil, ErrSessionNotFound
	}

	renewed, err := sm.store.RenewTTL(ctx, key, sm.ttl)
	if err != nil {
		return nil, upstream("session store expire", err)
	}
	if !renewed {
		// ключ сплив між GET та EXPIRE
		return nil, ErrSessionNotFound
	}

	var record SessionRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &record, nil
}

// DestroySession видаляє сесію. Ідемпотентна.
func (sm *sessionManager) DestroySession(ctx context.Context, refreshToken string) error {
	if err := sm.store.Delete(ctx, sessionKeyPrefix+refreshToken); err != nil {
		return upstream("session store delete", err)
	}

	logrus.WithField("token", tokenPrefix(refreshToken)).Info("Session deleted")
	return nil
}

// RevokeAccessToken додає jti до чорного списку на залишок строку дії токена
func (sm *sessionManager) RevokeAccessToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := sm.store.Set(ctx, revocationKeyPrefix+jti, revocationSentinel, ttl); err != nil {
		return upstream("revocation store set", err)
	}

	logrus.WithFields(logrus.Fields{
		"jti": jti,
		"ttl": ttl,
	}).Info("Access token revoked")
	return nil
}

// IsRevoked перевіряє, чи є jti у чорному списку
func (sm *sessionManager) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := sm.store.Exists(ctx, revocationKeyPrefix+jti)
	if err != nil {
		return false, upstream("revocation store exists", err)
	}
	return exists, nil
}

// tokenPrefix повертає безпечний для логів префікс токена
func tokenPrefix(token string) string {
	if len(token) <= 10 {
		return "..."
	}
	return token[:10] + "..."
}
