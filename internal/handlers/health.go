package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck перевірка залежності, наприклад ping бази даних
type HealthCheck func(ctx context.Context) error

// HealthHandler містить handlers для health check
type HealthHandler struct {
	service string
	version string
	checks  map[string]HealthCheck
}

// NewHealthHandler створює новий HealthHandler
func NewHealthHandler(service, version string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		service: service,
		version: version,
		checks:  checks,
	}
}

// Health повертає статус здоров'я сервісу
// @Summary Health Check
// @Description Повертає статус сервісу та його залежностей (база даних, сховище сесій)
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	results := make(gin.H, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logrus.WithError(err).WithField("check", name).Warn("Health check failed")
			results[name] = "unavailable"
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": h.service,
		"version": h.version,
		"checks":  results,
	})
}
