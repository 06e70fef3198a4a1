package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serveHealth(checks map[string]HealthCheck) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/health", NewHealthHandler("bizsite-api", "1.2.3", checks).Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	return w
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all checks pass", func(t *testing.T) {
		w := serveHealth(map[string]HealthCheck{"database": ok, "session_store": ok})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"status": "healthy",
			"service": "bizsite-api",
			"version": "1.2.3",
			"checks": {"database": "ok", "session_store": "ok"}
		}`, w.Body.String())
	})

	t.Run("failing dependency", func(t *testing.T) {
		w := serveHealth(map[string]HealthCheck{"database": ok, "session_store": down})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{
			"status": "unhealthy",
			"service": "bizsite-api",
			"version": "1.2.3",
			"checks": {"database": "ok", "session_store": "unavailable"}
		}`, w.Body.String())
	})

	t.Run("no checks", func(t *testing.T) {
		w := serveHealth(nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
