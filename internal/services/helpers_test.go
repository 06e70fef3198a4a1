package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

var errStoreDown = errors.New("connection refused")

// fakeClock керований годинник для TTL та строків дії токенів
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestIssuer(t *testing.T, clock *fakeClock) TokenIssuer {
	t.Helper()

	issuer, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Issuer:        "bizsite-api-test",
		Now:           clock.Now,
	})
	require.NoError(t, err)
	return issuer
}

// failingStore імітує недоступне сховище
type failingStore struct{}

func (failingStore) Set(context.Context, string, string, time.Duration) error {
	return errStoreDown
}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errStoreDown
}

func (failingStore) Exists(context.Context, string) (bool, error) {
	return false, errStoreDown
}

func (failingStore) Delete(context.Context, string) error {
	return errStoreDown
}

func (failingStore) RenewTTL(context.Context, string, time.Duration) (bool, error) {
	return false, errStoreDown
}

// expiringStore повертає false з RenewTTL, наче ключ сплив між GET та EXPIRE
type expiringStore struct {
	KeyValueStore
}

func (expiringStore) RenewTTL(context.Context, string, time.Duration) (bool, error) {
	return false, nil
}
