package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bizsite-api/internal/models"

	"github.com/google/uuid"
)

// memoryUserService in-process реалізація UserService для тестів і запуску без БД
type memoryUserService struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryUserService створює порожній in-memory Credential Store
func NewMemoryUserService() UserService {
	return &memoryUserService{users: make(map[string]models.User)}
}

func (s *memoryUserService) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (s *memoryUserService) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.find(func(u models.User) bool {
		return u.Username == username && u.OAuthProvider == models.ProviderLocal
	})
}

func (s *memoryUserService) GetUserByProvider(_ context.Context, provider, providerID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.find(func(u models.User) bool {
		return u.OAuthProvider == provider && u.OAuthProviderID != nil && *u.OAuthProviderID == providerID
	})
}

func (s *memoryUserService) ListUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *memoryUserService) CreateLocalUser(_ context.Context, username, password, role string) (*models.User, error) {
	if role == "" {
		role = models.RoleUser
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.taken(username, models.ProviderLocal) {
		return nil, ErrUserExists
	}
	user := models.User{
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  &hash,
		OAuthProvider: models.ProviderLocal,
		Role:          role,
	}
	return s.insert(user)
}

func (s *memoryUserService) CreateFederatedUser(_ context.Context, provider string, identity ExternalIdentity) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.find(func(u models.User) bool {
		return u.OAuthProvider == provider && u.OAuthProviderID != nil && *u.OAuthProviderID == identity.ProviderSubjectID
	}); err == nil {
		return nil, ErrUserExists
	}

	username := federatedUsername(identity)
	if s.taken(username, provider) {
		username = username + "-" + shortID(identity.ProviderSubjectID)
	}
	subject := identity.ProviderSubjectID
	return s.insert(models.User{
		Username:        username,
		Email:           identity.Email,
		Name:            identity.Name,
		OAuthProvider:   provider,
		OAuthProviderID: &subject,
		Role:            models.RoleUser,
	})
}

func (s *memoryUserService) UpdateUser(_ context.Context, id string, update UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if update.Username != nil && *update.Username != "" && *update.Username != user.Username {
		if s.taken(*update.Username, user.OAuthProvider) {
			return nil, ErrUserExists
		}
		user.Username = *update.Username
	}
	if update.Password != nil && *update.Password != "" {
		if !user.IsLocal() {
			return nil, fmt.Errorf("%w: federated identity cannot have a password", ErrInvalidIdentity)
		}
		hash, err := HashPassword(*update.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = &hash
	}
	if update.Role != nil && *update.Role != "" {
		user.Role = *update.Role
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	user.UpdatedAt = time.Now()
	s.users[id] = user
	return &user, nil
}

func (s *memoryUserService) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

// find викликається під s.mu
func (s *memoryUserService) find(match func(models.User) bool) (*models.User, error) {
	for _, u := range s.users {
		if match(u) {
			user := u
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memoryUserService) taken(username, provider string) bool {
	_, err := s.find(func(u models.User) bool {
		return u.Username == username && u.OAuthProvider == provider
	})
	return err == nil
}

func (s *memoryUserService) insert(user models.User) (*models.User, error) {
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = user
	return &user, nil
}
