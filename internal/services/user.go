package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bizsite-api/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordHashCost вартість bcrypt для нових паролів
const PasswordHashCost = bcrypt.DefaultCost

// userService реалізація UserService поверх GORM
type userService struct {
	db *gorm.DB
}

// NewUserService створює новий UserService
func NewUserService(db *gorm.DB) UserService {
	return &userService{
		db: db,
	}
}

// GetUserByID отримує користувача за ID
func (s *userService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.first(ctx, "get user by id", "id = ?", id)
}

// GetUserByUsername шукає лише серед локальних облікових записів
func (s *userService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.first(ctx, "get user by username", "username = ? AND oauth_provider = ?", username, models.ProviderLocal)
}

// GetUserByProvider шукає обліковий запис за (provider, provider id)
func (s *userService) GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	return s.first(ctx, "get user by provider", "oauth_provider = ? AND oauth_provider_id = ?", provider, providerID)
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, upstream("list users", err)
	}
	return users, nil
}

// CreateLocalUser реєструє нового користувача з паролем
func (s *userService) CreateLocalUser(ctx context.Context, username, password, role string) (*models.User, error) {
	if role == "" {
		role = models.RoleUser
	}

	// Перевіряємо чи користувач вже існує
	if _, err := s.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  &hash,
		OAuthProvider: models.ProviderLocal,
		Role:          role,
	}
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	}).Info("Local user created")
	return user, nil
}

// CreateFederatedUser автоматично створює обліковий запис при першому федеративному вході
func (s *userService) CreateFederatedUser(ctx context.Context, provider string, identity ExternalIdentity) (*models.User, error) {
	username := federatedUsername(identity)
	if _, err := s.first(ctx, "check federated username", "username = ? AND oauth_provider = ?", username, provider); err == nil {
		username = username + "-" + shortID(identity.ProviderSubjectID)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	subject := identity.ProviderSubjectID
	user := &models.User{
		Username:        username,
		Email:           identity.Email,
		Name:            identity.Name,
		OAuthProvider:   provider,
		OAuthProviderID: &subject,
		Role:            models.RoleUser,
	}
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"provider": provider,
	}).Info("User created successfully from external provider")
	return user, nil
}

// UpdateUser оновлює дані користувача
func (s *userService) UpdateUser(ctx context.Context, id string, update UserUpdate) (*models.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Username != nil && *update.Username != "" {
		updates["username"] = *update.Username
	}
	if update.Password != nil && *update.Password != "" {
		if !user.IsLocal() {
			return nil, fmt.Errorf("%w: federated identity cannot have a password", ErrInvalidIdentity)
		}
		hash, err := HashPassword(*update.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if update.Role != nil && *update.Role != "" {
		if *update.Role != models.RoleUser && *update.Role != models.RoleAdmin {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidIdentity, *update.Role)
		}
		updates["role"] = *update.Role
	}
	if len(updates) == 0 {
		return user, nil
	}

	err = s.db.WithContext(ctx).Model(user).Updates(updates).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, upstream("update user", err)
	}
	return s.GetUserByID(ctx, id)
}

// DeleteUser видаляє обліковий запис
func (s *userService) DeleteUser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return upstream("delete user", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *userService) first(ctx context.Context, op string, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, upstream(op, err)
	}
	return &user, nil
}

func (s *userService) create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	if err != nil {
		return upstream("create user", err)
	}
	return nil
}

// HashPassword хешує пароль через bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// federatedUsername бере локальну частину email
func federatedUsername(identity ExternalIdentity) string {
	if local, _, ok := strings.Cut(identity.Email, "@"); ok && local != "" {
		return local
	}
	return "user-" + shortID(identity.ProviderSubjectID)
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[len(id)-6:]
	}
	return id
}
