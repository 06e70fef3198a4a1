package handlers

import (
	"errors"
	"net/http"
	"time"

	"bizsite-api/internal/metrics"
	"bizsite-api/internal/models"
	"bizsite-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DefaultRefreshCookieName ім'я cookie з refresh token
const DefaultRefreshCookieName = "refreshToken"

// CookieOptions атрибути refresh cookie. HttpOnly та SameSite=Strict завжди увімкнені.
type CookieOptions struct {
	Name   string
	Path   string
	Domain string
	Secure bool
}

// AuthHandler містить handlers для login/refresh/logout
type AuthHandler struct {
	authService services.AuthService
	cookie      CookieOptions
	metrics     *metrics.Metrics
}

// NewAuthHandler створює новий AuthHandler
func NewAuthHandler(authService services.AuthService, cookie CookieOptions, m *metrics.Metrics) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = DefaultRefreshCookieName
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		metrics:     m,
	}
}

// Login вхід за username/password
// @Summary Login
// @Description Перевіряє облікові дані, повертає access token і встановлює refresh cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param loginRequest body models.LoginRequest true "Credentials"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} models.MessageResponse
// @Failure 401 {object} models.MessageResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.MessageResponse{Message: "Username and password are required"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.metrics.ObserveLogin("local", resultLabel(err))
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, models.MessageResponse{Message: "Invalid credentials"})
			return
		}
		writeServerError(c, err)
		return
	}

	h.metrics.ObserveLogin("local", "success")
	h.setRefreshCookie(c, result.RefreshToken, result.SessionMaxAge)
	c.JSON(http.StatusOK, tokenResponse(&result.AccessGrant))
}

// OAuthLogin вхід через Google ID token
// @Summary Federated login
// @Description Перевіряє ID token зовнішнього провайдера, створює користувача при першому вході
// @Tags auth
// @Accept json
// @Produce json
// @Param oauthLoginRequest body models.OAuthLoginRequest true "ID token"
// @Success 200 {object} models.TokenResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/oauth-login [post]
func (h *AuthHandler) OAuthLogin(c *gin.Context) {
	var req models.OAuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.ObserveLogin("federated", "rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Google token"})
		return
	}

	result, err := h.authService.FederatedLogin(c.Request.Context(), req.IDToken)
	if err != nil {
		h.metrics.ObserveLogin("federated", resultLabel(err))
		if errors.Is(err, services.ErrInvalidExternalToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Google token"})
			return
		}
		writeServerError(c, err)
		return
	}

	h.metrics.ObserveLogin("federated", "success")
	h.setRefreshCookie(c, result.RefreshToken, result.SessionMaxAge)
	c.JSON(http.StatusOK, tokenResponse(&result.AccessGrant))
}

// Refresh видає новий access token за refresh cookie
// @Summary Refresh access token
// @Description Читає refresh cookie, продовжує сесію і повертає новий access token. Refresh token не змінюється.
// @Tags auth
// @Produce json
// @Success 200 {object} models.TokenResponse
// @Failure 401
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.cookie.Name)

	grant, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		h.metrics.ObserveRefresh(resultLabel(err))
		if errors.Is(err, services.ErrUpstreamUnavailable) {
			writeServerError(c, err)
			return
		}
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	h.metrics.ObserveRefresh("success")
	c.JSON(http.StatusOK, tokenResponse(grant))
}

// Logout завершує сесію і відкликає access token
// @Summary Logout
// @Description Видаляє сесію refresh cookie та додає jti access token до чорного списку
// @Tags auth
// @Param Authorization header string false "Bearer Access Token"
// @Success 204
// @Failure 400
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.cookie.Name)
	if refreshToken != "" {
		h.clearRefreshCookie(c)
	}

	err := h.authService.Logout(c.Request.Context(), refreshToken, c.GetHeader("Authorization"))
	switch {
	case err == nil:
		h.metrics.ObserveLogout("success")
		c.Status(http.StatusNoContent)
	case errors.Is(err, services.ErrUpstreamUnavailable):
		h.metrics.ObserveLogout("error")
		writeServerError(c, err)
	case errors.Is(err, services.ErrMalformedAccessToken):
		h.metrics.ObserveLogout("malformed")
		c.AbortWithStatus(http.StatusBadRequest)
	default:
		h.metrics.ObserveLogout("error")
		writeServerError(c, err)
	}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, maxAge time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, token, int(maxAge/time.Second), h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, "", -1, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func tokenResponse(grant *services.AccessGrant) models.TokenResponse {
	return models.TokenResponse{
		AccessToken: grant.AccessToken,
		ExpiresIn:   grant.ExpiresIn,
		JTI:         grant.JTI,
	}
}

// resultLabel значення мітки result для метрик
func resultLabel(err error) string {
	if errors.Is(err, services.ErrUpstreamUnavailable) {
		return "error"
	}
	return "rejected"
}

// writeServerError логує збій і відповідає 503 для недоступних сховищ, 500 для решти
func writeServerError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrUpstreamUnavailable) {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Upstream unavailable")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, models.MessageResponse{Message: "Service unavailable"})
		return
	}
	logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, models.MessageResponse{Message: "Internal server error"})
}
