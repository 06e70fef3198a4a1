package handlers

import (
	"errors"
	"net/http"

	"bizsite-api/internal/middleware"
	"bizsite-api/internal/models"
	"bizsite-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserHandler містить handlers для /api/users
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler створює новий UserHandler
func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Register реєструє локального користувача
// @Summary Register
// @Description Створює локальний обліковий запис з роллю user
// @Tags users
// @Accept json
// @Produce json
// @Param registerRequest body models.RegisterRequest true "Username та пароль"
// @Success 201 {object} models.User
// @Failure 400 {object} models.MessageResponse
// @Failure 409 {object} models.MessageResponse
// @Router /api/users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.MessageResponse{Message: "Username and password (min 6 characters) are required"})
		return
	}

	// Роль з тіла запиту ігнорується
	user, err := h.userService.CreateLocalUser(c.Request.Context(), req.Username, req.Password, models.RoleUser)
	if err != nil {
		h.writeUserError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// ForgotPassword заглушка скидання пароля
// @Summary Forgot password
// @Tags users
// @Accept json
// @Produce json
// @Param forgotPasswordRequest body models.ForgotPasswordRequest true "Username"
// @Success 200 {object} models.MessageResponse
// @Router /api/users/forgot-password [post]
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.MessageResponse{Message: "Username is required"})
		return
	}

	logrus.WithField("username", req.Username).Info("Password reset requested")
	// Відповідь однакова незалежно від існування користувача
	c.JSON(http.StatusOK, models.MessageResponse{Message: "If the account exists, reset instructions will be sent"})
}

// Me повертає профіль поточного користувача
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.MessageResponse
// @Router /api/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.MessageResponse{Message: "No token provided"})
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		h.writeUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// List повертає всіх користувачів (лише admin)
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Failure 403 {object} models.MessageResponse
// @Router /api/users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		h.writeUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Get повертає користувача за ID
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 403 {object} models.MessageResponse
// @Failure 404 {object} models.MessageResponse
// @Router /api/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update часткове оновлення користувача. Роль змінює лише admin.
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param updateUserRequest body models.UpdateUserRequest true "Поля для оновлення"
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 400 {object} models.MessageResponse
// @Failure 403 {object} models.MessageResponse
// @Failure 404 {object} models.MessageResponse
// @Failure 409 {object} models.MessageResponse
// @Router /api/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.MessageResponse{Message: "Invalid request data"})
		return
	}

	claims, _ := middleware.GetCurrentClaims(c)
	if req.Role != nil && !middleware.HasRole(claims, models.RoleAdmin) {
		c.JSON(http.StatusForbidden, models.MessageResponse{Message: "Access denied: only admins can change roles"})
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), c.Param("id"), services.UserUpdate{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.writeUserError(c, err)
		return
	}

	updatedBy, _ := middleware.GetCurrentUserID(c)
	logrus.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"updated_by": updatedBy,
	}).Info("User updated successfully")
	c.JSON(http.StatusOK, user)
}

// Delete видаляє користувача (лише admin)
// @Summary Delete user
// @Tags users
// @Param id path string true "User ID"
// @Security BearerAuth
// @Success 204
// @Failure 403 {object} models.MessageResponse
// @Failure 404 {object} models.MessageResponse
// @Router /api/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.writeUserError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) writeUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, models.MessageResponse{Message: "User not found"})
	case errors.Is(err, services.ErrUserExists):
		c.JSON(http.StatusConflict, models.MessageResponse{Message: "Username already exists"})
	case errors.Is(err, services.ErrInvalidIdentity):
		c.JSON(http.StatusBadRequest, models.MessageResponse{Message: "Invalid request data"})
	default:
		writeServerError(c, err)
	}
}
