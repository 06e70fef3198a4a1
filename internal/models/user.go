package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ролі користувачів
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Провайдери ідентичності
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User представляє обліковий запис у Credential Store
type User struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Username        string    `gorm:"not null;size:100;uniqueIndex:idx_users_username_provider" json:"username"`
	Email           string    `gorm:"size:255" json:"email"`
	Name            string    `gorm:"size:255" json:"name,omitempty"`
	PasswordHash    *string   `gorm:"size:255" json:"-"`
	OAuthProvider   string    `gorm:"column:oauth_provider;not null;size:32;default:local;uniqueIndex:idx_users_username_provider;uniqueIndex:idx_users_provider_id" json:"oauth_provider"`
	OAuthProviderID *string   `gorm:"column:oauth_provider_id;size:255;uniqueIndex:idx_users_provider_id" json:"-"`
	Role            string    `gorm:"not null;size:20;default:user" json:"role"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName явно задає ім'я таблиці для GORM
func (User) TableName() string {
	return "users"
}

// Validate перевіряє інваріант ідентичності: або локальний пароль,
// або зовнішній провайдер з його ідентифікатором, але не обидва.
func (u *User) Validate() error {
	hasPassword := u.PasswordHash != nil && *u.PasswordHash != ""
	hasProviderID := u.OAuthProviderID != nil && *u.OAuthProviderID != ""

	switch {
	case u.Username == "":
		return fmt.Errorf("username is required")
	case u.Role != RoleUser && u.Role != RoleAdmin:
		return fmt.Errorf("unknown role %q", u.Role)
	case u.OAuthProvider == ProviderLocal:
		if !hasPassword || hasProviderID {
			return fmt.Errorf("local identity requires a password hash and no provider id")
		}
	case u.OAuthProvider == "":
		return fmt.Errorf("oauth provider is required")
	default:
		if !hasProviderID || hasPassword {
			return fmt.Errorf("federated identity requires a provider id and no password hash")
		}
	}
	return nil
}

// IsLocal повертає true для облікових записів з паролем
func (u *User) IsLocal() bool {
	return u.OAuthProvider == ProviderLocal
}

// BeforeCreate генерує ID та валідує запис перед вставкою
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return u.Validate()
}
