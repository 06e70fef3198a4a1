package middleware

import (
	"net/http"
	"slices"

	"bizsite-api/internal/models"
	"bizsite-api/internal/services"

	"github.com/gin-gonic/gin"
)

// HasRole перевіряє точну роль
func HasRole(claims *services.AccessTokenClaims, role string) bool {
	return claims != nil && claims.Role == role
}

// HasAnyRole перевіряє, чи роль входить до дозволених
func HasAnyRole(claims *services.AccessTokenClaims, roles ...string) bool {
	return claims != nil && slices.Contains(roles, claims.Role)
}

// IsSelf перевіряє, що користувач діє над власним ресурсом
func IsSelf(claims *services.AccessTokenClaims, id string) bool {
	return claims != nil && id != "" && claims.UserID() == id
}

// IsSelfOrAdmin дозволяє власника ресурсу або адміністратора
func IsSelfOrAdmin(claims *services.AccessTokenClaims, id string) bool {
	return IsSelf(claims, id) || HasRole(claims, models.RoleAdmin)
}

// RequireRole пропускає лише користувачів з роллю role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := GetCurrentClaims(c)
		if !HasRole(claims, role) {
			abortWithMessage(c, http.StatusForbidden, "Access denied: insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequireAnyRole пропускає користувачів з однією з ролей
func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := GetCurrentClaims(c)
		if !HasAnyRole(claims, roles...) {
			abortWithMessage(c, http.StatusForbidden, "Access denied: insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequireSelf порівнює subject з параметром маршруту param
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := GetCurrentClaims(c)
		if !IsSelf(claims, c.Param(param)) {
			abortWithMessage(c, http.StatusForbidden, "Access denied: not your resource")
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin пропускає власника ресурсу або адміністратора
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := GetCurrentClaims(c)
		if !IsSelfOrAdmin(claims, c.Param(param)) {
			abortWithMessage(c, http.StatusForbidden, "Access denied: not your resource or admin")
			return
		}
		c.Next()
	}
}
