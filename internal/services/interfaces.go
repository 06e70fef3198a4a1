package services

import (
	"context"
	"time"

	"bizsite-api/internal/models"
)

// AuthService інтерфейс для автентифікації
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	FederatedLogin(ctx context.Context, idToken string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AccessGrant, error)
	Logout(ctx context.Context, refreshToken, authorizationHeader string) error
}

// UserService інтерфейс Credential Store
type UserService interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateLocalUser(ctx context.Context, username, password, role string) (*models.User, error)
	CreateFederatedUser(ctx context.Context, provider string, identity ExternalIdentity) (*models.User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// IdentityVerifier перевіряє ID token зовнішнього провайдера
type IdentityVerifier interface {
	Provider() string
	VerifyExternalIdentity(ctx context.Context, idToken string) (*ExternalIdentity, error)
}

// ExternalIdentity дані користувача, підтверджені зовнішнім провайдером
type ExternalIdentity struct {
	Email             string
	ProviderSubjectID string
	Name              string
}

// UserUpdate часткове оновлення облікового запису; nil поля не змінюються
type UserUpdate struct {
	Username *string
	Password *string
	Role     *string
}

// AccessGrant новий access token, виданий при login/refresh
type AccessGrant struct {
	AccessToken string
	JTI         string
	ExpiresIn   int64
	ExpiresAt   time.Time
}

// LoginResult результат успішного входу: access token та refresh token для cookie
type LoginResult struct {
	AccessGrant
	RefreshToken string
	// SessionMaxAge строк життя cookie, дорівнює вікну неактивності сесії
	SessionMaxAge time.Duration
	UserID        string
}
