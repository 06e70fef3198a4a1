package middleware

import (
	"net/http"

	"bizsite-api/internal/metrics"
	"bizsite-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	claimsKey = "claims"
	userIDKey = "user_id"
	roleKey   = "role"
)

// AuthMiddleware створює middleware для перевірки access token.
// Перевіряє підпис, строк дії та відсутність jti у чорному списку.
func AuthMiddleware(tokenIssuer services.TokenIssuer, sessionManager services.SessionManager, m *metrics.Metrics) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		token, ok := services.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			logrus.WithField("path", c.Request.URL.Path).Debug("No token provided")
			m.ObserveGuardRejection("no_token")
			abortWithMessage(c, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := tokenIssuer.VerifyAccessToken(token)
		if err != nil {
			logrus.WithField("path", c.Request.URL.Path).Debug("Token verification failed")
			m.ObserveGuardRejection("invalid_token")
			abortWithMessage(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if claims.ID != "" {
			revoked, err := sessionManager.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logrus.WithError(err).Error("Failed to check token revocation")
				m.ObserveGuardRejection("store_unavailable")
				abortWithMessage(c, http.StatusServiceUnavailable, "Service unavailable")
				return
			}
			if revoked {
				logrus.WithField("jti", claims.ID).Info("Revoked token presented")
				m.ObserveGuardRejection("revoked")
				abortWithMessage(c, http.StatusUnauthorized, "Token has been revoked")
				return
			}
		}

		c.Set(claimsKey, claims)
		c.Set(userIDKey, claims.UserID())
		c.Set(roleKey, claims.Role)

		logrus.WithFields(logrus.Fields{
			"user_id": claims.UserID(),
			"jti":     claims.ID,
			"path":    c.Request.URL.Path,
		}).Debug("User authenticated successfully")

		c.Next()
	})
}

// GetCurrentClaims витягує claims поточного користувача з контексту
func GetCurrentClaims(c *gin.Context) (*services.AccessTokenClaims, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}

	claims, ok := value.(*services.AccessTokenClaims)
	return claims, ok
}

// GetCurrentUserID витягує ID поточного користувача з контексту
func GetCurrentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	return userIDStr, ok
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
