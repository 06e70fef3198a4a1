package services

import (
	"context"
	"sync"
	"time"
)

// KeyValueStore тонкий контракт над сховищем ключ-значення з TTL.
// Реалізації: RedisStore (продакшн) та MemoryStore (тести, локальний запуск).
// Authenticator і AccessGuard не знають, яка з них використовується.
type KeyValueStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get повертає ok=false, якщо ключа немає або його TTL сплив
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// RenewTTL продовжує TTL існуючого ключа; повертає false, якщо ключа немає
	RenewTTL(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Pinger реалізують сховища, які можна перевірити в health check
type Pinger interface {
	Ping(ctx context.Context) error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // нульове значення: без TTL
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore in-process реалізація KeyValueStore.
// Прострочені ключі видаляються ліниво при зверненні, фонових таймерів немає.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore створює порожнє сховище
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock створює сховище з власним годинником
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.lookup(key)
	return ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// RenewTTL поводиться як EXPIRE у Redis: ttl <= 0 видаляє ключ
func (m *MemoryStore) RenewTTL(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return false, nil
	}
	if ttl <= 0 {
		delete(m.entries, key)
		return true, nil
	}
	entry.expiresAt = m.now().Add(ttl)
	m.entries[key] = entry
	return true, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// lookup викликається під m.mu
func (m *MemoryStore) lookup(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}
