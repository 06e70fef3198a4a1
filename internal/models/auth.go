package models

// LoginRequest представляє запит на вхід через username/password
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// OAuthLoginRequest представляє запит на вхід через зовнішній ID token
type OAuthLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// TokenResponse відповідь на успішний login/refresh
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
	JTI         string `json:"jti"`
}

// RegisterRequest представляє запит на реєстрацію
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// ForgotPasswordRequest запит на скидання пароля (заглушка)
type ForgotPasswordRequest struct {
	Username string `json:"username" binding:"required"`
}

// UpdateUserRequest часткове оновлення користувача
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty" binding:"omitempty,min=6"`
	Role     *string `json:"role,omitempty" binding:"omitempty,oneof=user admin"`
}

// MessageResponse стандартна відповідь з повідомленням
type MessageResponse struct {
	Message string `json:"message"`
}
