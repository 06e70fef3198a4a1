package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimit глобальний token bucket на весь процес: requests запитів за window
func RateLimit(requests int, window time.Duration, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = requests
	}
	limiter := rate.NewLimiter(rate.Limit(float64(requests)/window.Seconds()), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			logrus.WithField("path", c.Request.URL.Path).Warn("Rate limit exceeded")
			abortWithMessage(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
